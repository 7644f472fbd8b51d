package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/you112ef/sim-sub002/pkg/config"
	"github.com/you112ef/sim-sub002/pkg/eventbus"
	"github.com/you112ef/sim-sub002/pkg/eventbus/kafka"
)

// NewEventBus creates the event bus selected by the configuration.
func NewEventBus(cfg config.EventBusConfig, logger *slog.Logger) (eventbus.EventBus, error) {
	switch cfg.Driver {
	case "kafka":
		bus, err := kafka.NewEventBus(cfg.Brokers, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka event bus: %w", err)
		}

		return bus, nil
	case "memory", "":
		return eventbus.NewInMemoryEventBus(), nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver: %s", cfg.Driver)
	}
}
