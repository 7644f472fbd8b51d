// Package web provides the HTTP handlers for the simflow execution API.
package web

import (
	"github.com/you112ef/sim-sub002/pkg/workflow"
)

// ExecuteRequest is the request body for running a workflow. The workflow
// document is inlined; overrides layer run-specific sub-block values over the
// authored ones (override wins).
type ExecuteRequest struct {
	Workflow     *workflow.Document        `json:"workflow"     validate:"required"`
	Input        map[string]any            `json:"input,omitempty"`
	Variables    map[string]any            `json:"variables,omitempty"`
	Env          map[string]string         `json:"env,omitempty"`
	Overrides    map[string]map[string]any `json:"overrides,omitempty"`
	StartBlockID string                    `json:"start_block_id,omitempty"`
	UserID       string                    `json:"user_id,omitempty"`
}

// ValidateRequest compiles a workflow without running it.
type ValidateRequest struct {
	Workflow  *workflow.Document        `json:"workflow" validate:"required"`
	Overrides map[string]map[string]any `json:"overrides,omitempty"`
}

// ValidateResponse summarizes a successful compilation.
type ValidateResponse struct {
	Valid      bool `json:"valid"`
	BlockCount int  `json:"block_count"`
	EdgeCount  int  `json:"edge_count"`
	Loops      int  `json:"loops"`
	Parallels  int  `json:"parallels"`
	Whiles     int  `json:"whiles"`
}
