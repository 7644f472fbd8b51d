package executor

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/events"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/services"
)

// StreamEvent is one incremental observation of a streaming run. The final
// event always carries the ExecutionResult; intermediate events carry block
// transitions.
type StreamEvent struct {
	Type    events.EventType        `json:"type"`
	BlockID string                  `json:"block_id,omitempty"`
	Span    *models.TraceSpan       `json:"span,omitempty"`
	Result  *models.ExecutionResult `json:"result,omitempty"`
}

// ExecuteStream runs the plan like Execute but emits block transitions on the
// returned channel as they happen. The channel is closed after the final
// result event. Streaming is a transport layered on the same state machine;
// the logging session and result semantics are unchanged.
func (e *Executor) ExecuteStream(ctx context.Context, plan *models.ExecutionPlan, in RunInput) (<-chan StreamEvent, error) {
	if plan == nil || !plan.Validated {
		return nil, ErrPlanNotValidated
	}

	ch := make(chan StreamEvent, 64)

	streamed := *e
	streamed.session = &streamSession{inner: e.session, ch: ch}

	go func() {
		defer close(ch)

		result, err := streamed.Execute(ctx, plan, in)
		if err != nil {
			result = &models.ExecutionResult{
				WorkflowID: in.WorkflowID,
				Success:    false,
				Error:      &models.ExecutionError{Message: err.Error(), Iteration: -1},
			}
		}

		eventType := events.ExecutionCompletedEvent

		switch {
		case result.Cancelled:
			eventType = events.ExecutionCancelledEvent
		case !result.Success:
			eventType = events.ExecutionFailedEvent
		}

		// The final event is delivered even when the run context is already
		// cancelled; the channel is buffered and closed right after.
		ch <- StreamEvent{Type: eventType, Result: result}
	}()

	return ch, nil
}

// streamSession tees logging-session calls onto the stream channel while
// delegating to the wrapped session.
type streamSession struct {
	inner services.LoggingSession
	ch    chan StreamEvent
}

func (s *streamSession) Start(ctx context.Context, workflowID, executionID string, triggerData map[string]any) error {
	send(ctx, s.ch, StreamEvent{Type: events.ExecutionStartedEvent})

	return s.inner.Start(ctx, workflowID, executionID, triggerData)
}

func (s *streamSession) SetupExecutor(ctx context.Context, executionID string, blockCount int) error {
	return s.inner.SetupExecutor(ctx, executionID, blockCount)
}

func (s *streamSession) LogBlockStart(ctx context.Context, executionID, blockID, blockType string) error {
	send(ctx, s.ch, StreamEvent{Type: events.BlockStartedEvent, BlockID: blockID})

	return s.inner.LogBlockStart(ctx, executionID, blockID, blockType)
}

func (s *streamSession) LogBlockEnd(ctx context.Context, executionID, blockID string, span *models.TraceSpan) error {
	eventType := events.BlockCompletedEvent

	switch span.Status {
	case models.BlockStatusFailed:
		eventType = events.BlockFailedEvent
	case models.BlockStatusSkipped:
		eventType = events.BlockSkippedEvent
	}

	send(ctx, s.ch, StreamEvent{Type: eventType, BlockID: blockID, Span: span})

	return s.inner.LogBlockEnd(ctx, executionID, blockID, span)
}

func (s *streamSession) Complete(ctx context.Context, result *models.ExecutionResult) error {
	return s.inner.Complete(ctx, result)
}

func (s *streamSession) CompleteWithError(ctx context.Context, result *models.ExecutionResult) error {
	return s.inner.CompleteWithError(ctx, result)
}

func send(ctx context.Context, ch chan StreamEvent, event StreamEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
