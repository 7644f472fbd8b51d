package response

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates ResponseBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewResponseBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeResponse
}

func (f *Factory) Name() string {
	return "Response"
}

func (f *Factory) Description() string {
	return "Shapes the workflow's final output from its resolved configuration."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data": map[string]any{
				"type":        "object",
				"description": "The output payload. Values may reference upstream blocks.",
			},
		},
	}
}
