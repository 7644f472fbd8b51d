// Package response provides the terminal output block: its resolved config
// becomes the workflow's final output.
package response

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

type ResponseBlock struct {
	id   string
	data map[string]any
}

func NewResponseBlock(id string, config map[string]any) (*ResponseBlock, error) {
	data, _ := config["data"].(map[string]any)
	if data == nil {
		data = make(map[string]any)

		for k, v := range config {
			data[k] = v
		}
	}

	return &ResponseBlock{id: id, data: data}, nil
}

func (b *ResponseBlock) ID() string {
	return b.id
}

func (b *ResponseBlock) Type() string {
	return models.BlockTypeResponse
}

func (b *ResponseBlock) Execute(_ context.Context, _ *models.ExecutionContext) (*models.BlockResult, error) {
	return &models.BlockResult{Output: b.data}, nil
}
