// Package condition provides the branching block. It evaluates a condition
// expression and routes execution down the true or false handle; the executor
// skips the path that was not taken.
package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/template"
)

type ConditionBlock struct {
	id        string
	condition string
}

func NewConditionBlock(id string, config map[string]any) (*ConditionBlock, error) {
	condition, ok := config["condition"].(string)
	if !ok {
		return nil, errors.New("missing required field 'condition'")
	}

	return &ConditionBlock{id: id, condition: condition}, nil
}

func (b *ConditionBlock) ID() string {
	return b.id
}

func (b *ConditionBlock) Type() string {
	return models.BlockTypeCondition
}

func (b *ConditionBlock) Execute(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
	result, err := template.RenderWithContext(b.condition, execCtx)
	if err != nil {
		return nil, fmt.Errorf("condition evaluation failed: %w", err)
	}

	isTrue := template.Truthy(result)

	handle := models.HandleConditionFalse
	if isTrue {
		handle = models.HandleConditionTrue
	}

	return &models.BlockResult{
		Output: map[string]any{
			"condition_result": isTrue,
			"evaluated_value":  result,
		},
		SelectedHandle: handle,
	}, nil
}
