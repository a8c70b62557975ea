package read_models_handlers

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/shopspring/decimal"

	"travel/entity"
)

type Repository interface {
	Store(ctx context.Context, booking entity.OpsBooking) error
	UpdateByBookingID(ctx context.Context, bookingID string, update func(booking *entity.OpsBooking) error) error
}

// OpsBookingReadModel projects booking and payment events into the operations view.
type OpsBookingReadModel struct {
	repo Repository
}

func NewOpsBookingReadModel(repo Repository) OpsBookingReadModel {
	if repo == nil {
		panic("repo is nil")
	}

	return OpsBookingReadModel{repo: repo}
}

func (r OpsBookingReadModel) OnBookingCreated(ctx context.Context, event *entity.BookingCreated_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnBookingCreated: %s", event.BookingID)

	return r.repo.Store(ctx, entity.OpsBooking{
		BookingID:     event.BookingID,
		CustomerID:    event.CustomerID,
		BookedAt:      event.Header.PublishedAt,
		Status:        entity.BookingStatusPending,
		TotalPrice:    event.TotalPrice,
		StartDate:     event.StartDate,
		EndDate:       event.EndDate,
		Payments:      map[string]entity.OpsPayment{},
		TotalRefunded: entity.NewMoney(decimal.Zero, event.TotalPrice.Currency),
	})
}

func (r OpsBookingReadModel) OnBookingConfirmed(ctx context.Context, event *entity.BookingConfirmed_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnBookingConfirmed: %s", event.BookingID)

	return r.repo.UpdateByBookingID(ctx, event.BookingID, func(booking *entity.OpsBooking) error {
		booking.ConfirmedAt = event.Header.PublishedAt
		if booking.Status != entity.BookingStatusCancelled {
			booking.Status = entity.BookingStatusConfirmed
		}

		return nil
	})
}

func (r OpsBookingReadModel) OnBookingCancelled(ctx context.Context, event *entity.BookingCancelled_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnBookingCancelled: %s", event.BookingID)

	return r.repo.UpdateByBookingID(ctx, event.BookingID, func(booking *entity.OpsBooking) error {
		booking.Status = entity.BookingStatusCancelled
		booking.CancelledAt = event.Header.PublishedAt
		booking.CancelReason = event.Reason

		return nil
	})
}

func (r OpsBookingReadModel) OnPaymentCreated(ctx context.Context, event *entity.PaymentCreated_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnPaymentCreated: %s", event.PaymentID)

	return r.repo.UpdateByBookingID(ctx, event.BookingID, func(booking *entity.OpsBooking) error {
		payment, ok := booking.Payments[event.PaymentID]
		if !ok {
			payment = entity.OpsPayment{
				Status:   entity.PaymentStatusPending,
				Refunded: entity.NewMoney(decimal.Zero, event.Amount.Currency),
			}
		}

		payment.Amount = event.Amount
		payment.Method = event.Method
		payment.Provider = event.Provider
		payment.CreatedAt = event.Header.PublishedAt

		booking.Payments[event.PaymentID] = payment

		return nil
	})
}

func (r OpsBookingReadModel) OnPaymentStatusChanged(ctx context.Context, event *entity.PaymentStatusChanged_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnPaymentStatusChanged: %s -> %s", event.PaymentID, event.Status)

	return r.repo.UpdateByBookingID(ctx, event.BookingID, func(booking *entity.OpsBooking) error {
		payment, ok := booking.Payments[event.PaymentID]
		if !ok {
			// PaymentCreated_v1 is consumed by another handler, retried until it is projected
			return fmt.Errorf("payment %s is not projected yet", event.PaymentID)
		}

		if event.Header.PublishedAt.Before(payment.StatusChangedAt) {
			log.FromContext(ctx).Infof("Skipping outdated status %s of payment %s", event.Status, event.PaymentID)
			return nil
		}

		payment.Status = event.Status
		payment.StatusChangedAt = event.Header.PublishedAt
		if event.TransactionID != nil {
			payment.TransactionID = *event.TransactionID
		}
		if event.Status == entity.PaymentStatusCompleted && payment.CompletedAt.IsZero() {
			payment.CompletedAt = event.Header.PublishedAt
		}

		booking.Payments[event.PaymentID] = payment

		return nil
	})
}

func (r OpsBookingReadModel) OnPaymentRefunded(ctx context.Context, event *entity.PaymentRefunded_v1) error {
	log.FromContext(ctx).Infof("OpsBookingReadModel: OnPaymentRefunded: %s", event.PaymentID)

	return r.repo.UpdateByBookingID(ctx, event.BookingID, func(booking *entity.OpsBooking) error {
		payment, ok := booking.Payments[event.PaymentID]
		if !ok {
			return fmt.Errorf("payment %s is not projected yet", event.PaymentID)
		}

		refunded, err := decimal.NewFromString(event.TotalRefunded.Amount)
		if err != nil {
			return fmt.Errorf("invalid refunded amount of payment %s: %w", event.PaymentID, err)
		}

		// a redelivered older event never lowers the total
		if refunded.GreaterThan(amountOf(payment.Refunded)) {
			payment.Refunded = event.TotalRefunded
			payment.RefundedAt = event.Header.PublishedAt
		}
		booking.Payments[event.PaymentID] = payment

		total := decimal.Zero
		for _, p := range booking.Payments {
			total = total.Add(amountOf(p.Refunded))
		}
		booking.TotalRefunded = entity.NewMoney(total, booking.TotalPrice.Currency)

		return nil
	})
}

func amountOf(m entity.Money) decimal.Decimal {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return decimal.Zero
	}

	return amount
}
