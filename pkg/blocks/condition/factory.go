package condition

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates ConditionBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewConditionBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeCondition
}

func (f *Factory) Name() string {
	return "Condition"
}

func (f *Factory) Description() string {
	return "Evaluates a condition and routes execution to the true or false path."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{
				"type":        "string",
				"description": "Condition expression to evaluate. Supports templating and various data types.",
				"examples": []string{
					`{{eq .variables.environment "production"}}`,
					`{{gt .blocks.score.result 75}}`,
					`true`,
				},
			},
		},
		"required": []string{"condition"},
	}
}
