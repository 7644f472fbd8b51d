// Package eventbus provides publish/subscribe plumbing for execution
// lifecycle events, backed by watermill.
package eventbus

import (
	"context"

	"github.com/you112ef/sim-sub002/pkg/events"
)

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	Publish(ctx context.Context, key string, event events.Event) error
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
	Close() error
	GenerateID() string
}
