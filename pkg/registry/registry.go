// Package registry maintains the dispatch table of block behavior factories,
// keyed by block type string. The table is built at startup; the executor
// never needs to know concrete behavior types.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/protocol"
)

type Registry struct {
	logger         *slog.Logger
	blockFactories map[string]protocol.BlockFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:         logger,
		blockFactories: make(map[string]protocol.BlockFactory),
	}
}

func (r *Registry) RegisterBlock(factory protocol.BlockFactory) {
	r.blockFactories[factory.ID()] = factory
}

// CreateBlock instantiates a behavior for the given type, validating the
// resolved config against the factory's JSON schema first.
func (r *Registry) CreateBlock(ctx context.Context, blockType, blockID string, config map[string]any) (models.BlockBehavior, error) {
	factory, ok := r.blockFactories[blockType]
	if !ok {
		return nil, fmt.Errorf("block type '%s' not registered", blockType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid configuration for block %s: %w", blockID, err)
	}

	return factory.Create(ctx, blockID, config)
}

// IsRegistered checks if a block type is registered.
func (r *Registry) IsRegistered(blockType string) bool {
	_, exists := r.blockFactories[blockType]

	return exists
}

// AvailableBlockTypes returns all registered block type ids.
func (r *Registry) AvailableBlockTypes() []string {
	types := make([]string, 0, len(r.blockFactories))
	for blockType := range r.blockFactories {
		types = append(types, blockType)
	}

	return types
}

func (r *Registry) validateConfig(factory protocol.BlockFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("config does not match schema: %s", errs[0].String())
		}

		return fmt.Errorf("config does not match schema")
	}

	return nil
}
