package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// ErrExecutionNotFound is returned when no result exists for an execution id.
var ErrExecutionNotFound = errors.New("execution not found")

// ExecutionStore persists finished execution results so the API can serve
// them after the run ends.
type ExecutionStore interface {
	Save(ctx context.Context, result *models.ExecutionResult) error
	Get(ctx context.Context, executionID string) (*models.ExecutionResult, error)
	Close() error
}

const executionKeyPrefix = "simflow:execution:"

// RedisExecutionStore keeps results in Redis with a TTL.
type RedisExecutionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisExecutionStore(addr string, ttl time.Duration) (*RedisExecutionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := timeoutCtx(context.Background())
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisExecutionStore{client: client, ttl: ttl}, nil
}

func (s *RedisExecutionStore) Save(ctx context.Context, result *models.ExecutionResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	return s.client.Set(ctx, executionKeyPrefix+result.ExecutionID, payload, s.ttl).Err()
}

func (s *RedisExecutionStore) Get(ctx context.Context, executionID string) (*models.ExecutionResult, error) {
	payload, err := s.client.Get(ctx, executionKeyPrefix+executionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrExecutionNotFound
	}

	if err != nil {
		return nil, err
	}

	var result models.ExecutionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
	}

	return &result, nil
}

func (s *RedisExecutionStore) Close() error {
	return s.client.Close()
}

// MemoryExecutionStore is the in-process store used by the CLI and tests.
type MemoryExecutionStore struct {
	mu      sync.RWMutex
	results map[string]*models.ExecutionResult
}

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{results: make(map[string]*models.ExecutionResult)}
}

func (s *MemoryExecutionStore) Save(_ context.Context, result *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.ExecutionID] = result

	return nil
}

func (s *MemoryExecutionStore) Get(_ context.Context, executionID string) (*models.ExecutionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[executionID]
	if !ok {
		return nil, ErrExecutionNotFound
	}

	return result, nil
}

func (s *MemoryExecutionStore) Close() error { return nil }
