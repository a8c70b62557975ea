package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"travel/entity"
	"travel/metrics"
)

type CreatedPayment struct {
	Payment      entity.Payment
	ClientSecret string
	ProviderData map[string]string
}

// CreatePayment records a new payment attempt. For providers with a gateway an intent is created
// first; if that fails nothing is stored.
func (s *Service) CreatePayment(ctx context.Context, actor string, params entity.NewPaymentParams) (CreatedPayment, error) {
	var created CreatedPayment

	_, err := s.bookings.UpdateAccount(ctx, params.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		if err := s.requireOwner(ctx, params.BookingID, actor); err != nil {
			return err
		}

		payment, err := account.PreparePayment(params, s.now())
		if err != nil {
			return err
		}

		gateway, ok, err := s.gateway(payment.Provider)
		if err != nil {
			return err
		}
		if ok {
			gatewayCtx, cancel := s.withGatewayTimeout(ctx)
			defer cancel()

			intent, err := gateway.CreateIntent(gatewayCtx, entity.CreateIntentRequest{
				PaymentID:      payment.PaymentID,
				BookingID:      payment.BookingID,
				Amount:         payment.Amount,
				Currency:       payment.Currency,
				Method:         payment.Method,
				IdempotencyKey: payment.PaymentID,
			})
			if err != nil {
				return fmt.Errorf("could not create payment intent: %w", err)
			}

			payment.IntentID = &intent.IntentID
			payment.Metadata = payment.Metadata.Merge(map[string]string{"intent_status": intent.Status})

			created.ClientSecret = intent.ClientSecret
			created.ProviderData = intent.ProviderData
		}

		account.AddPayment(payment)
		created.Payment = payment

		return nil
	})
	if err != nil {
		return CreatedPayment{}, err
	}

	metrics.PaymentsCreated.WithLabelValues(created.Payment.Provider).Inc()
	logger(ctx, logrus.Fields{
		"booking_id": created.Payment.BookingID,
		"payment_id": created.Payment.PaymentID,
		"amount":     entity.FormatAmount(created.Payment.Amount),
		"provider":   created.Payment.Provider,
	}).Info("Payment created")

	return created, nil
}

func (s *Service) GetPayment(ctx context.Context, actor string, paymentID string) (entity.Payment, error) {
	payment, err := s.bookings.GetPayment(ctx, paymentID)
	if err != nil {
		return entity.Payment{}, err
	}
	if err := s.requireOwnerOrAdmin(ctx, payment.BookingID, actor); err != nil {
		return entity.Payment{}, err
	}

	return payment, nil
}

type PaymentStatusChange struct {
	Status        entity.PaymentStatus
	TransactionID *string
	Metadata      map[string]string
}

// PaymentResult is a payment after a change together with the resulting booking status.
type PaymentResult struct {
	Payment       entity.Payment
	BookingStatus entity.BookingStatus
	// Refund is set by Refund.
	Refund *IssuedRefund
}

type IssuedRefund struct {
	entity.RefundRecord
	ProviderData map[string]string
}

// UpdatePaymentStatus lets an admin set a payment status, e.g. for payments settled outside of
// a gateway. The booking is reconciled afterwards.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor string, paymentID string, change PaymentStatusChange) (PaymentResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return PaymentResult{}, err
	}

	payment, err := s.bookings.GetPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}

	account, err := s.bookings.UpdateAccount(ctx, payment.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		now := s.now()

		err := account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{
			Status:        change.Status,
			TransactionID: change.TransactionID,
			Metadata:      change.Metadata,
			Actor:         actor,
		}, now)
		if err != nil {
			return err
		}

		account.Reconcile(now)
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	logger(ctx, logrus.Fields{
		"payment_id": paymentID,
		"status":     change.Status,
		"actor":      actor,
	}).Info("Payment status updated")

	return paymentResult(account, paymentID)
}

type RefundRequest struct {
	// Amount defaults to the remaining refundable amount.
	Amount   *decimal.Decimal
	Reason   string
	Metadata map[string]string
}

// Refund returns money of a completed payment. The gateway is called before anything changes
// locally; a failed gateway call leaves the payment untouched.
func (s *Service) Refund(ctx context.Context, actor string, paymentID string, request RefundRequest) (PaymentResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return PaymentResult{}, err
	}

	payment, err := s.bookings.GetPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}

	var issued IssuedRefund
	account, err := s.bookings.UpdateAccount(ctx, payment.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		amount, err := account.RefundAmount(paymentID, request.Amount)
		if err != nil {
			return err
		}

		payment, err := account.Payment(paymentID)
		if err != nil {
			return err
		}

		issued, err = s.issueRefund(ctx, *payment, amount, request.Reason)
		if err != nil {
			return err
		}
		issued.Actor = actor

		if len(request.Metadata) > 0 {
			payment.Metadata = payment.Metadata.Merge(request.Metadata)
		}

		now := s.now()
		if err := account.RecordRefund(paymentID, issued.RefundRecord, now); err != nil {
			return err
		}
		account.Reconcile(now)

		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	metrics.RefundsIssued.WithLabelValues(payment.Provider).Inc()

	result, err := paymentResult(account, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}
	result.Refund = &issued

	logger(ctx, logrus.Fields{
		"payment_id":     paymentID,
		"status":         result.Payment.Status,
		"booking_status": result.BookingStatus,
		"actor":          actor,
	}).Info("Payment refunded")

	return result, nil
}

func (s *Service) issueRefund(ctx context.Context, payment entity.Payment, amount decimal.Decimal, reason string) (IssuedRefund, error) {
	gateway, ok, err := s.gateway(payment.Provider)
	if err != nil {
		return IssuedRefund{}, err
	}
	if !ok {
		return IssuedRefund{
			RefundRecord: entity.RefundRecord{
				RefundID:  "manual-" + uuid.NewString(),
				Amount:    amount,
				Reason:    reason,
				Status:    entity.RefundStatusSucceeded,
				CreatedAt: s.now(),
			},
			ProviderData: map[string]string{},
		}, nil
	}

	gatewayCtx, cancel := s.withGatewayTimeout(ctx)
	defer cancel()

	providerRefund, err := gateway.CreateRefund(gatewayCtx, entity.CreateRefundRequest{
		PaymentID:     payment.PaymentID,
		IntentID:      payment.IntentID,
		TransactionID: payment.TransactionID,
		Amount:        amount,
		Currency:      payment.Currency,
		Reason:        reason,
		// a retry after a failed commit returns the refund the provider already made
		IdempotencyKey: fmt.Sprintf(
			"%s-refund-%s-%s",
			payment.PaymentID,
			entity.FormatAmount(payment.RefundedAmount()),
			entity.FormatAmount(amount),
		),
	})
	if err != nil {
		return IssuedRefund{}, fmt.Errorf("could not create refund: %w", err)
	}

	createdAt := providerRefund.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	return IssuedRefund{
		RefundRecord: entity.RefundRecord{
			RefundID:  providerRefund.RefundID,
			Amount:    providerRefund.Amount,
			Reason:    reason,
			Status:    providerRefund.Status,
			CreatedAt: createdAt,
		},
		ProviderData: providerRefund.ProviderData,
	}, nil
}

func paymentResult(account *entity.BookingAccount, paymentID string) (PaymentResult, error) {
	payment, err := account.Payment(paymentID)
	if err != nil {
		return PaymentResult{}, err
	}

	return PaymentResult{
		Payment:       *payment,
		BookingStatus: account.Booking.Status,
	}, nil
}
