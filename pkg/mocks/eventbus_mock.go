// Package mocks provides testify mocks for the simflow interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/you112ef/sim-sub002/pkg/eventbus"
	"github.com/you112ef/sim-sub002/pkg/events"
)

// MockEventBus is a mock implementation of the eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event events.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}
