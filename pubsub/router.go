package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"travel/entity"
	"travel/pubsub/bus"
	"travel/pubsub/outbox"
	"travel/pubsub/read_models_handlers"
)

type DataLake interface {
	StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error
}

func NewWatermillRouter(
	postgresSubscriber message.Subscriber,
	redisPublisher message.Publisher,
	newRedisSubscriber func(consumerGroup string) message.Subscriber,
	eventProcessorConfig cqrs.EventProcessorConfig,
	opsReadModel read_models_handlers.OpsBookingReadModel,
	dataLake DataLake,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	if err := useMiddlewares(router, redisPublisher, watermillLogger); err != nil {
		return nil, err
	}

	outbox.AddForwarderHandler(postgresSubscriber, redisPublisher, router, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	err = eventProcessor.AddHandlers(
		cqrs.NewEventHandler(
			"ops_read_model.OnBookingCreated",
			opsReadModel.OnBookingCreated,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnBookingConfirmed",
			opsReadModel.OnBookingConfirmed,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnBookingCancelled",
			opsReadModel.OnBookingCancelled,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnPaymentCreated",
			opsReadModel.OnPaymentCreated,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnPaymentStatusChanged",
			opsReadModel.OnPaymentStatusChanged,
		),
		cqrs.NewEventHandler(
			"ops_read_model.OnPaymentRefunded",
			opsReadModel.OnPaymentRefunded,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	router.AddNoPublisherHandler(
		"events_splitter",
		bus.EventsTopic,
		newRedisSubscriber("svc-travel.events_splitter"),
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			return redisPublisher.Publish(eventTopic(eventName), msg)
		},
	)

	router.AddNoPublisherHandler(
		"store_to_data_lake",
		bus.EventsTopic,
		newRedisSubscriber("svc-travel.store_to_data_lake"),
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			// only the header is needed, the payload is stored as is
			type Event struct {
				Header entity.EventHeader `json:"header"`
			}

			var event Event
			if err := eventProcessorConfig.Marshaler.Unmarshal(msg, &event); err != nil {
				return fmt.Errorf("could not unmarshal event: %w", err)
			}

			return dataLake.StoreEvent(
				msg.Context(),
				entity.DataLakeEvent{
					ID:          event.Header.ID,
					PublishedAt: event.Header.PublishedAt,
					Name:        eventName,
					Payload:     msg.Payload,
				},
			)
		},
	)

	return router, nil
}
