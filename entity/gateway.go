package entity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, request CreateIntentRequest) (PaymentIntent, error)
	CreateRefund(ctx context.Context, request CreateRefundRequest) (ProviderRefund, error)
	// VerifyWebhookEvent checks the signature header against the raw payload and decodes the event.
	VerifyWebhookEvent(payload []byte, signatureHeader string) (ProviderEvent, error)
}

type CreateIntentRequest struct {
	PaymentID string
	BookingID string
	Amount    decimal.Decimal
	Currency  string
	Method    string
	// IdempotencyKey makes retried intent creation return the same intent.
	IdempotencyKey string
}

type PaymentIntent struct {
	IntentID     string
	ClientSecret string
	Status       string
	ProviderData map[string]string
}

type CreateRefundRequest struct {
	PaymentID      string
	IntentID       *string
	TransactionID  *string
	Amount         decimal.Decimal
	Currency       string
	Reason         string
	IdempotencyKey string
}

type ProviderRefund struct {
	RefundID     string
	Amount       decimal.Decimal
	Status       RefundStatus
	CreatedAt    time.Time
	ProviderData map[string]string
}

type ProviderEventType string

const (
	ProviderEventPaymentSucceeded ProviderEventType = "payment_intent.succeeded"
	ProviderEventPaymentFailed    ProviderEventType = "payment_intent.payment_failed"
	ProviderEventPaymentCanceled  ProviderEventType = "payment_intent.canceled"
	ProviderEventChargeRefunded   ProviderEventType = "charge.refunded"
)

// ProviderEvent is a verified webhook notification normalized to the fields reconciliation needs.
type ProviderEvent struct {
	EventID   string
	Type      ProviderEventType
	CreatedAt time.Time

	IntentID      string
	TransactionID string
	Currency      string

	// set for charge events
	Amount         decimal.Decimal
	AmountRefunded decimal.Decimal
	Refunds        []ProviderRefund

	FailureMessage string
}

func (e ProviderEvent) Known() bool {
	switch e.Type {
	case ProviderEventPaymentSucceeded, ProviderEventPaymentFailed, ProviderEventPaymentCanceled, ProviderEventChargeRefunded:
		return true
	default:
		return false
	}
}
