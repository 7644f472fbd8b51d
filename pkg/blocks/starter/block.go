// Package starter provides the workflow entry block. It has no behavior of
// its own: it surfaces the run's initial input so downstream tags like
// <start.input> resolve.
package starter

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

type StarterBlock struct {
	id string
}

func NewStarterBlock(id string, _ map[string]any) (*StarterBlock, error) {
	return &StarterBlock{id: id}, nil
}

func (b *StarterBlock) ID() string {
	return b.id
}

func (b *StarterBlock) Type() string {
	return models.BlockTypeStarter
}

func (b *StarterBlock) Execute(_ context.Context, execCtx *models.ExecutionContext) (*models.BlockResult, error) {
	output := map[string]any{"input": map[string]any{}}
	if execCtx.Input != nil {
		output["input"] = execCtx.Input
	}

	return &models.BlockResult{Output: output}, nil
}
