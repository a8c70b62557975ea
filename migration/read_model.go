package migrations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"

	"travel/entity"
)

type DataLake interface {
	GetEvents(ctx context.Context) ([]entity.DataLakeEvent, error)
}

type OpsBookingHandlers interface {
	OnBookingCreated(ctx context.Context, event *entity.BookingCreated_v1) error
	OnBookingConfirmed(ctx context.Context, event *entity.BookingConfirmed_v1) error
	OnBookingCancelled(ctx context.Context, event *entity.BookingCancelled_v1) error
	OnPaymentCreated(ctx context.Context, event *entity.PaymentCreated_v1) error
	OnPaymentStatusChanged(ctx context.Context, event *entity.PaymentStatusChanged_v1) error
	OnPaymentRefunded(ctx context.Context, event *entity.PaymentRefunded_v1) error
}

// MigrateReadModel replays the data lake into the ops bookings read model. Handlers are
// idempotent, so replaying events that were already projected is safe.
func MigrateReadModel(ctx context.Context, dl DataLake, rm OpsBookingHandlers) error {
	logger := log.FromContext(ctx)
	logger.Info("Migrating read model")

	events, err := dl.GetEvents(ctx)
	if err != nil {
		return fmt.Errorf("could not get events from data lake: %w", err)
	}

	logger.WithField("events_count", len(events)).Info("Has events to migrate")

	for _, event := range events {
		start := time.Now()

		logger := log.FromContext(ctx).WithFields(logrus.Fields{
			"event_name": event.Name,
			"event_id":   event.ID,
		})
		logger.Debug("Migrating event")

		err := migrateEvent(ctx, event, rm)
		if err != nil {
			return fmt.Errorf("could not migrate event %s (%s): %w", event.ID, event.Name, err)
		}

		logger.WithField("duration", time.Since(start)).Debug("Event migrated")
	}

	return nil
}

func migrateEvent(ctx context.Context, event entity.DataLakeEvent, rm OpsBookingHandlers) error {
	switch event.Name {
	case "BookingCreated_v1":
		return apply(ctx, event, rm.OnBookingCreated)
	case "BookingConfirmed_v1":
		return apply(ctx, event, rm.OnBookingConfirmed)
	case "BookingCancelled_v1":
		return apply(ctx, event, rm.OnBookingCancelled)
	case "PaymentCreated_v1":
		return apply(ctx, event, rm.OnPaymentCreated)
	case "PaymentStatusChanged_v1":
		return apply(ctx, event, rm.OnPaymentStatusChanged)
	case "PaymentRefunded_v1":
		return apply(ctx, event, rm.OnPaymentRefunded)
	default:
		return fmt.Errorf("unknown event %s", event.Name)
	}
}

func apply[T any](ctx context.Context, event entity.DataLakeEvent, handler func(context.Context, *T) error) error {
	e, err := unmarshalDataLakeEvent[T](event)
	if err != nil {
		return err
	}

	return handler(ctx, e)
}

func unmarshalDataLakeEvent[T any](event entity.DataLakeEvent) (*T, error) {
	eventInstance := new(T)

	err := json.Unmarshal(event.Payload, eventInstance)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal event %s: %w", event.Name, err)
	}

	return eventInstance, nil
}
