package function

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates FunctionBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewFunctionBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeFunction
}

func (f *Factory) Name() string {
	return "Function"
}

func (f *Factory) Description() string {
	return "Evaluates a template expression and exposes the result as the block output."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Template expression to evaluate. Has access to blocks, variables, env, and input.",
			},
		},
		"required": []string{"code"},
	}
}
