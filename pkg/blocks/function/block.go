// Package function provides the expression-evaluation block: a small
// template-rendered code field whose result becomes the block's output.
package function

import (
	"context"
	"errors"
	"fmt"

	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/template"
)

type FunctionBlock struct {
	id   string
	code string
}

func NewFunctionBlock(id string, config map[string]any) (*FunctionBlock, error) {
	code, ok := config["code"].(string)
	if !ok {
		return nil, errors.New("missing required field 'code'")
	}

	return &FunctionBlock{id: id, code: code}, nil
}

func (b *FunctionBlock) ID() string {
	return b.id
}

func (b *FunctionBlock) Type() string {
	return models.BlockTypeFunction
}

func (b *FunctionBlock) Execute(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
	result, err := template.RenderWithContext(b.code, execCtx)
	if err != nil {
		return nil, fmt.Errorf("function evaluation failed: %w", err)
	}

	return &models.BlockResult{Output: map[string]any{"result": result}}, nil
}
