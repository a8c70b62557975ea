package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"travel/entity"
	"travel/metrics"
)

type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeIgnored         Outcome = "ignored"
	OutcomePaymentNotFound Outcome = "payment_not_found"
	OutcomeStale           Outcome = "stale"
)

type PaymentsRepository interface {
	PaymentByIntentID(ctx context.Context, intentID string) (entity.Payment, error)
	PaymentByTransactionID(ctx context.Context, transactionID string) (entity.Payment, error)
	UpdateAccount(
		ctx context.Context,
		bookingID string,
		updateFn func(ctx context.Context, account *entity.BookingAccount) error,
	) (*entity.BookingAccount, error)
}

type EventJournal interface {
	Register(ctx context.Context, provider, eventID, eventType string) (alreadyProcessed bool, err error)
	MarkProcessed(ctx context.Context, provider, eventID, outcome string) error
}

// Processor applies verified provider notifications to the payment ledger. Redelivered events
// are acknowledged without being applied again; concurrent deliveries of one event are collapsed.
type Processor struct {
	provider string
	gateway  entity.PaymentGateway
	payments PaymentsRepository
	journal  EventJournal

	inFlight singleflight.Group
}

func NewProcessor(provider string, gateway entity.PaymentGateway, payments PaymentsRepository, journal EventJournal) *Processor {
	if gateway == nil {
		panic("gateway is nil")
	}
	if payments == nil {
		panic("payments repository is nil")
	}
	if journal == nil {
		panic("event journal is nil")
	}

	return &Processor{
		provider: provider,
		gateway:  gateway,
		payments: payments,
		journal:  journal,
	}
}

// Process verifies the signature over the raw payload and applies the event. A returned error
// means the provider should deliver the event again, except for entity.ErrSignature and
// entity.ErrConfiguration.
func (p *Processor) Process(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	event, err := p.gateway.VerifyWebhookEvent(payload, signatureHeader)
	if err != nil {
		return "", err
	}

	result, err, _ := p.inFlight.Do(event.EventID, func() (any, error) {
		return p.handle(ctx, event)
	})
	if err != nil {
		return "", err
	}

	return result.(Outcome), nil
}

func (p *Processor) handle(ctx context.Context, event entity.ProviderEvent) (Outcome, error) {
	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"provider":   p.provider,
		"event_id":   event.EventID,
		"event_type": event.Type,
	})

	processed, err := p.journal.Register(ctx, p.provider, event.EventID, string(event.Type))
	if err != nil {
		return "", err
	}
	if processed {
		logger.Info("Webhook event already processed")
		metrics.WebhookEvents.WithLabelValues(string(event.Type), string(OutcomeDuplicate)).Inc()
		return OutcomeDuplicate, nil
	}

	outcome, err := p.apply(ctx, event, logger)
	if err != nil {
		return "", err
	}

	if err := p.journal.MarkProcessed(ctx, p.provider, event.EventID, string(outcome)); err != nil {
		return "", err
	}

	metrics.WebhookEvents.WithLabelValues(string(event.Type), string(outcome)).Inc()
	logger.WithField("outcome", outcome).Info("Webhook event processed")

	return outcome, nil
}

func (p *Processor) apply(ctx context.Context, event entity.ProviderEvent, logger *logrus.Entry) (Outcome, error) {
	if !event.Known() {
		return OutcomeIgnored, nil
	}

	payment, err := p.findPayment(ctx, event)
	if errors.Is(err, entity.ErrNotFound) {
		logger.WithFields(logrus.Fields{
			"intent_id":      event.IntentID,
			"transaction_id": event.TransactionID,
		}).Warn("No payment for webhook event")
		return OutcomePaymentNotFound, nil
	}
	if err != nil {
		return "", err
	}

	logger = logger.WithFields(logrus.Fields{
		"payment_id": payment.PaymentID,
		"booking_id": payment.BookingID,
	})

	if event.Type == entity.ProviderEventPaymentSucceeded && !event.Amount.IsZero() && !event.Amount.Equal(payment.Amount) {
		logger.WithField("provider_amount", entity.FormatAmount(event.Amount)).Warn("Provider amount differs from payment amount")
	}

	_, err = p.payments.UpdateAccount(ctx, payment.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		now := time.Now().UTC()

		if err := applyEvent(account, payment.PaymentID, event, now); err != nil {
			return err
		}

		account.Reconcile(now)
		return nil
	})
	if errors.Is(err, entity.ErrInvalidState) {
		logger.WithError(err).Warn("Stale webhook event")
		return OutcomeStale, nil
	}
	if err != nil {
		return "", fmt.Errorf("could not apply webhook event %s: %w", event.EventID, err)
	}

	return OutcomeApplied, nil
}

func (p *Processor) findPayment(ctx context.Context, event entity.ProviderEvent) (entity.Payment, error) {
	if event.Type != entity.ProviderEventChargeRefunded {
		return p.payments.PaymentByIntentID(ctx, event.IntentID)
	}

	payment, err := p.payments.PaymentByTransactionID(ctx, event.TransactionID)
	if errors.Is(err, entity.ErrNotFound) && event.IntentID != "" {
		return p.payments.PaymentByIntentID(ctx, event.IntentID)
	}
	return payment, err
}

func applyEvent(account *entity.BookingAccount, paymentID string, event entity.ProviderEvent, now time.Time) error {
	switch event.Type {
	case entity.ProviderEventPaymentSucceeded:
		return account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{
			Status:        entity.PaymentStatusCompleted,
			TransactionID: transactionID(event),
			Actor:         event.EventID,
		}, now)
	case entity.ProviderEventPaymentFailed, entity.ProviderEventPaymentCanceled:
		var metadata map[string]string
		if event.FailureMessage != "" {
			metadata = map[string]string{"failure_message": event.FailureMessage}
		}
		return account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{
			Status:   entity.PaymentStatusFailed,
			Metadata: metadata,
			Actor:    event.EventID,
		}, now)
	case entity.ProviderEventChargeRefunded:
		payment, err := account.Payment(paymentID)
		if err != nil {
			return err
		}

		// a refunded charge was captured, even if the success notification has not arrived yet
		if !payment.Status.Refundable() && payment.Status != entity.PaymentStatusRefunded {
			err := account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{
				Status:        entity.PaymentStatusCompleted,
				TransactionID: transactionID(event),
				Actor:         event.EventID,
			}, now)
			if err != nil {
				return err
			}
		}

		refunds := make([]entity.RefundRecord, 0, len(event.Refunds))
		for _, r := range event.Refunds {
			refunds = append(refunds, entity.RefundRecord{
				RefundID:  r.RefundID,
				Amount:    r.Amount,
				Reason:    "refunded at provider",
				Actor:     event.EventID,
				Status:    r.Status,
				CreatedAt: r.CreatedAt,
			})
		}

		return account.SyncProviderRefunds(paymentID, entity.ProviderRefundSync{
			ChargeID:       event.TransactionID,
			AmountRefunded: event.AmountRefunded,
			Refunds:        refunds,
			Actor:          event.EventID,
		}, now)
	default:
		return nil
	}
}

func transactionID(event entity.ProviderEvent) *string {
	if event.TransactionID == "" {
		return nil
	}
	id := event.TransactionID
	return &id
}
