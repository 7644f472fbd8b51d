package logblock

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates LogBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewLogBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeLog
}

func (f *Factory) Name() string {
	return "Log"
}

func (f *Factory) Description() string {
	return "Writes a structured log line and passes the message through."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports expression placeholders.",
			},
			"level": map[string]any{
				"type": "string",
				"enum": []string{"debug", "info", "warn", "error"},
			},
		},
		"required": []string{"message"},
	}
}
