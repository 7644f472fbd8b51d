package models

import (
	"context"
	"log/slog"
)

// ExecutionContext carries the per-invocation state handed to a block
// behavior. It is owned by a single executor run; behaviors must treat it as
// read-only.
type ExecutionContext struct {
	ExecutionID  string            `json:"execution_id"`
	WorkflowID   string            `json:"workflow_id"`
	Input        map[string]any    `json:"input,omitempty"`     // resolved block config
	Variables    map[string]any    `json:"variables,omitempty"` // workflow-scoped named variables
	Env          map[string]string `json:"env,omitempty"`
	BlockOutputs map[string]any    `json:"block_outputs,omitempty"` // upstream outputs by block id

	Logger *slog.Logger `json:"-"`
}

// WithLogger returns a copy of the context bound to the given logger.
func (c *ExecutionContext) WithLogger(logger *slog.Logger) *ExecutionContext {
	clone := *c
	clone.Logger = logger

	return &clone
}

// BlockResult is what a behavior returns on success. SelectedHandle routes
// branching blocks: when non-empty, only edges leaving on that handle stay
// live and sibling paths are skipped.
type BlockResult struct {
	Output         map[string]any `json:"output,omitempty"`
	SelectedHandle string         `json:"selected_handle,omitempty"`
}

// BlockBehavior is the capability interface implemented by every block type.
// Behaviors are created per execution by their factory and invoked
// polymorphically by the executor.
type BlockBehavior interface {
	ID() string
	Type() string
	Execute(ctx context.Context, execCtx *ExecutionContext) (*BlockResult, error)
}
