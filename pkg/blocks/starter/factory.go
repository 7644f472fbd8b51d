package starter

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates StarterBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewStarterBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeStarter
}

func (f *Factory) Name() string {
	return "Starter"
}

func (f *Factory) Description() string {
	return "Entry point of a workflow. Emits the run's initial input for downstream blocks."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
