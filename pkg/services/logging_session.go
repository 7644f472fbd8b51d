package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/you112ef/sim-sub002/pkg/eventbus"
	"github.com/you112ef/sim-sub002/pkg/events"
	"github.com/you112ef/sim-sub002/pkg/models"
)

// LoggingSession is the observability collaborator the executor calls at run
// start, at block transitions, and at run end. Implementations must be safe
// for concurrent use; the executor swallows their errors so observability can
// never mask an execution result.
type LoggingSession interface {
	Start(ctx context.Context, workflowID, executionID string, triggerData map[string]any) error
	SetupExecutor(ctx context.Context, executionID string, blockCount int) error
	LogBlockStart(ctx context.Context, executionID, blockID, blockType string) error
	LogBlockEnd(ctx context.Context, executionID, blockID string, span *models.TraceSpan) error
	Complete(ctx context.Context, result *models.ExecutionResult) error
	CompleteWithError(ctx context.Context, result *models.ExecutionResult) error
}

// NoopLoggingSession discards everything.
type NoopLoggingSession struct{}

func (NoopLoggingSession) Start(context.Context, string, string, map[string]any) error {
	return nil
}

func (NoopLoggingSession) SetupExecutor(context.Context, string, int) error { return nil }

func (NoopLoggingSession) LogBlockStart(context.Context, string, string, string) error { return nil }

func (NoopLoggingSession) LogBlockEnd(context.Context, string, string, *models.TraceSpan) error {
	return nil
}

func (NoopLoggingSession) Complete(context.Context, *models.ExecutionResult) error { return nil }

func (NoopLoggingSession) CompleteWithError(context.Context, *models.ExecutionResult) error {
	return nil
}

// EventBusLoggingSession publishes execution lifecycle events on the event
// bus. Workers, dashboards, and audit consumers subscribe independently of
// the executor.
type EventBusLoggingSession struct {
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewEventBusLoggingSession(bus eventbus.EventBus, logger *slog.Logger) *EventBusLoggingSession {
	if logger == nil {
		logger = slog.Default()
	}

	return &EventBusLoggingSession{bus: bus, logger: logger.With("module", "logging_session")}
}

func (s *EventBusLoggingSession) Start(ctx context.Context, workflowID, executionID string, triggerData map[string]any) error {
	event := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflowID, executionID),
		TriggerData: triggerData,
	}

	return s.bus.Publish(ctx, executionID, event)
}

func (s *EventBusLoggingSession) SetupExecutor(_ context.Context, executionID string, blockCount int) error {
	s.logger.Debug("Executor attached to logging session",
		"execution_id", executionID,
		"block_count", blockCount,
	)

	return nil
}

func (s *EventBusLoggingSession) LogBlockStart(ctx context.Context, executionID, blockID, blockType string) error {
	event := events.BlockStarted{
		BaseEvent: events.NewBaseEvent(events.BlockStartedEvent, "", executionID),
		BlockID:   blockID,
		BlockType: blockType,
	}

	return s.bus.Publish(ctx, executionID, event)
}

func (s *EventBusLoggingSession) LogBlockEnd(ctx context.Context, executionID, blockID string, span *models.TraceSpan) error {
	switch span.Status {
	case models.BlockStatusFailed:
		event := events.BlockFailed{
			BaseEvent: events.NewBaseEvent(events.BlockFailedEvent, "", executionID),
			BlockID:   blockID,
			Error:     span.Error,
		}

		return s.bus.Publish(ctx, executionID, event)
	case models.BlockStatusSkipped:
		event := events.BlockSkipped{
			BaseEvent: events.NewBaseEvent(events.BlockSkippedEvent, "", executionID),
			BlockID:   blockID,
		}

		return s.bus.Publish(ctx, executionID, event)
	default:
		event := events.BlockCompleted{
			BaseEvent: events.NewBaseEvent(events.BlockCompletedEvent, "", executionID),
			BlockID:   blockID,
			Duration:  span.Duration,
		}

		return s.bus.Publish(ctx, executionID, event)
	}
}

func (s *EventBusLoggingSession) Complete(ctx context.Context, result *models.ExecutionResult) error {
	event := events.ExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, result.WorkflowID, result.ExecutionID),
		Output:    result.Output,
		Duration:  result.Duration,
	}

	return s.bus.Publish(ctx, result.ExecutionID, event)
}

func (s *EventBusLoggingSession) CompleteWithError(ctx context.Context, result *models.ExecutionResult) error {
	if result.Cancelled {
		event := events.ExecutionCancelled{
			BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, result.WorkflowID, result.ExecutionID),
		}

		return s.bus.Publish(ctx, result.ExecutionID, event)
	}

	event := events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, result.WorkflowID, result.ExecutionID),
		Error:     result.Error,
		Duration:  result.Duration,
	}

	return s.bus.Publish(ctx, result.ExecutionID, event)
}

// timeoutCtx bounds collaborator calls so a slow observability sink cannot
// stall a run indefinitely.
func timeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
