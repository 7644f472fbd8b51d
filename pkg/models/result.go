package models

import "time"

// BlockStatus defines the possible states of a block execution.
type BlockStatus string

const (
	BlockStatusPending   BlockStatus = "pending"
	BlockStatusEligible  BlockStatus = "eligible"
	BlockStatusRunning   BlockStatus = "running"
	BlockStatusCompleted BlockStatus = "completed"
	BlockStatusFailed    BlockStatus = "failed"
	BlockStatusSkipped   BlockStatus = "skipped"
)

// TraceSpan records one block's or container's execution window. Container
// spans nest one child span per iteration or branch. Spans are observability
// data only; control flow never depends on them.
type TraceSpan struct {
	ID        string        `json:"id"`
	BlockID   string        `json:"block_id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Status    BlockStatus   `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Children  []*TraceSpan  `json:"children,omitempty"`
}

// ExecutionError identifies the failing block within a run. Iteration is the
// zero-based loop iteration or parallel branch index when the failure happened
// inside a container, -1 otherwise.
type ExecutionError struct {
	BlockID   string `json:"block_id"`
	BlockName string `json:"block_name,omitempty"`
	Message   string `json:"message"`
	Iteration int    `json:"iteration"`
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// ExecutionResult is the immutable outcome of one top-level executor run. The
// caller always receives a structured result; Output carries whatever partial
// results accumulated even when Success is false.
type ExecutionResult struct {
	ExecutionID string          `json:"execution_id"`
	WorkflowID  string          `json:"workflow_id,omitempty"`
	Success     bool            `json:"success"`
	Cancelled   bool            `json:"cancelled,omitempty"`
	Output      any             `json:"output,omitempty"`
	Error       *ExecutionError `json:"error,omitempty"`
	Spans       []*TraceSpan    `json:"spans,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     time.Time       `json:"ended_at"`
	Duration    time.Duration   `json:"duration"`
}
