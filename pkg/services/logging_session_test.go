package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/you112ef/sim-sub002/pkg/events"
	"github.com/you112ef/sim-sub002/pkg/mocks"
	"github.com/you112ef/sim-sub002/pkg/models"
	"github.com/you112ef/sim-sub002/pkg/services"
)

func publishedType(t *testing.T, bus *mocks.MockEventBus, call int) events.EventType {
	t.Helper()

	event, ok := bus.Calls[call].Arguments.Get(2).(events.Event)
	require.True(t, ok)

	return event.GetType()
}

func TestEventBusLoggingSession_PublishesLifecycleEvents(t *testing.T) {
	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session := services.NewEventBusLoggingSession(bus, nil)
	ctx := t.Context()

	require.NoError(t, session.Start(ctx, "wf-1", "exec-1", map[string]any{"source": "test"}))
	require.NoError(t, session.LogBlockStart(ctx, "exec-1", "a", "api"))
	require.NoError(t, session.LogBlockEnd(ctx, "exec-1", "a", &models.TraceSpan{
		BlockID:  "a",
		Status:   models.BlockStatusCompleted,
		Duration: 10 * time.Millisecond,
	}))
	require.NoError(t, session.Complete(ctx, &models.ExecutionResult{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Success:     true,
	}))

	bus.AssertNumberOfCalls(t, "Publish", 4)
	assert.Equal(t, events.ExecutionStartedEvent, publishedType(t, bus, 0))
	assert.Equal(t, events.BlockStartedEvent, publishedType(t, bus, 1))
	assert.Equal(t, events.BlockCompletedEvent, publishedType(t, bus, 2))
	assert.Equal(t, events.ExecutionCompletedEvent, publishedType(t, bus, 3))
}

func TestEventBusLoggingSession_MapsSpanStatusToEvent(t *testing.T) {
	tests := []struct {
		name     string
		status   models.BlockStatus
		expected events.EventType
	}{
		{"failed span", models.BlockStatusFailed, events.BlockFailedEvent},
		{"skipped span", models.BlockStatusSkipped, events.BlockSkippedEvent},
		{"completed span", models.BlockStatusCompleted, events.BlockCompletedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(mocks.MockEventBus)
			bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			session := services.NewEventBusLoggingSession(bus, nil)
			require.NoError(t, session.LogBlockEnd(t.Context(), "exec-1", "a", &models.TraceSpan{
				BlockID: "a",
				Status:  tt.status,
				Error:   "boom",
			}))

			assert.Equal(t, tt.expected, publishedType(t, bus, 0))
		})
	}
}

func TestEventBusLoggingSession_CancelledRunPublishesCancelled(t *testing.T) {
	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session := services.NewEventBusLoggingSession(bus, nil)
	require.NoError(t, session.CompleteWithError(t.Context(), &models.ExecutionResult{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Cancelled:   true,
		Error:       &models.ExecutionError{Message: "execution cancelled", Iteration: -1},
	}))

	assert.Equal(t, events.ExecutionCancelledEvent, publishedType(t, bus, 0))
}

func TestEventBusLoggingSession_CompleteWithError(t *testing.T) {
	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session := services.NewEventBusLoggingSession(bus, nil)
	require.NoError(t, session.CompleteWithError(t.Context(), &models.ExecutionResult{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Error:       &models.ExecutionError{BlockID: "a", Message: "boom", Iteration: -1},
	}))

	assert.Equal(t, events.ExecutionFailedEvent, publishedType(t, bus, 0))
}
