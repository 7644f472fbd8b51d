package cmd

import (
	"fmt"

	"github.com/you112ef/sim-sub002/pkg/config"
	"github.com/you112ef/sim-sub002/pkg/services"
)

// NewExecutionStore creates the execution result store selected by the
// configuration. An empty Redis address falls back to the in-memory store.
func NewExecutionStore(cfg config.RedisConfig) (services.ExecutionStore, error) {
	if cfg.Addr == "" {
		return services.NewMemoryExecutionStore(), nil
	}

	store, err := services.NewRedisExecutionStore(cfg.Addr, cfg.ResultTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return store, nil
}
