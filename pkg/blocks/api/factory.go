package api

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/models"
)

// Factory creates APIBlock instances.
type Factory struct{}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (models.BlockBehavior, error) {
	return NewAPIBlock(id, config)
}

func (f *Factory) ID() string {
	return models.BlockTypeAPI
}

func (f *Factory) Name() string {
	return "API"
}

func (f *Factory) Description() string {
	return "Makes an HTTP request and exposes status, headers, and decoded body."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
			},
		},
		"required": []string{"url"},
	}
}
