// Package events defines event types for workflow execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/you112ef/sim-sub002/pkg/models"
)

type EventType string

// Topic is the event bus topic all execution events are published on.
const Topic = "simflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	BlockStartedEvent   EventType = "execution.block.started"
	BlockCompletedEvent EventType = "execution.block.completed"
	BlockFailedEvent    EventType = "execution.block.failed"
	BlockSkippedEvent   EventType = "execution.block.skipped"
)

// Event is implemented by every event published on the bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, executionID string) BaseEvent {
	return BaseEvent{
		ID:          "event-" + uuid.New().String()[:8],
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	Output   any           `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	Error    *models.ExecutionError `json:"error,omitempty"`
	Duration time.Duration          `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type BlockStarted struct {
	BaseEvent

	BlockID   string `json:"block_id"`
	BlockType string `json:"block_type"`
}

func (e BlockStarted) GetType() EventType { return BlockStartedEvent }

type BlockCompleted struct {
	BaseEvent

	BlockID  string        `json:"block_id"`
	Output   any           `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (e BlockCompleted) GetType() EventType { return BlockCompletedEvent }

type BlockFailed struct {
	BaseEvent

	BlockID string `json:"block_id"`
	Error   string `json:"error"`
}

func (e BlockFailed) GetType() EventType { return BlockFailedEvent }

type BlockSkipped struct {
	BaseEvent

	BlockID string `json:"block_id"`
}

func (e BlockSkipped) GetType() EventType { return BlockSkippedEvent }
