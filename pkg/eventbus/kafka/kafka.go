// Package kafka provides the Kafka-backed event bus used when executions
// must publish lifecycle events to a broker.
package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"

	"github.com/you112ef/sim-sub002/pkg/eventbus"
)

const consumerGroup = "simflow-executions"

// NewEventBus builds a watermill event bus backed by the given Kafka brokers.
func NewEventBus(brokers []string, logger watermill.LoggerAdapter) (*eventbus.WatermillEventBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	saramaSubscriberConfig := wkafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := wkafka.NewSubscriber(
		wkafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           wkafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         consumerGroup,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := wkafka.NewPublisher(
		wkafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             wkafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return eventbus.NewWatermillEventBus(publisher, subscriber), nil
}
