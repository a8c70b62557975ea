package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"travel/entity"
)

// PaymentGatewayMock records intents and refunds in memory. Webhook events are verified the same
// way as by StripeGateway, so tests sign payloads with WebhookSecret.
type PaymentGatewayMock struct {
	lock sync.Mutex

	WebhookSecret string

	Intents map[string]entity.CreateIntentRequest
	Refunds map[string]entity.CreateRefundRequest

	// FailIntents and FailRefunds make the next calls return a gateway error.
	FailIntents bool
	FailRefunds bool
}

func (c *PaymentGatewayMock) CreateIntent(_ context.Context, request entity.CreateIntentRequest) (entity.PaymentIntent, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.FailIntents {
		return entity.PaymentIntent{}, &entity.GatewayError{
			Provider:  entity.ProviderStripe,
			Operation: "create_intent",
			Detail:    "card_declined",
		}
	}

	if c.Intents == nil {
		c.Intents = make(map[string]entity.CreateIntentRequest)
	}

	intentID := "pi_" + request.PaymentID
	c.Intents[intentID] = request

	return entity.PaymentIntent{
		IntentID:     intentID,
		ClientSecret: intentID + "_secret",
		Status:       "requires_payment_method",
		ProviderData: map[string]string{"intent_id": intentID},
	}, nil
}

func (c *PaymentGatewayMock) CreateRefund(_ context.Context, request entity.CreateRefundRequest) (entity.ProviderRefund, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.FailRefunds {
		return entity.ProviderRefund{}, &entity.GatewayError{
			Provider:  entity.ProviderStripe,
			Operation: "create_refund",
			Detail:    "charge_already_refunded",
		}
	}

	if c.Refunds == nil {
		c.Refunds = make(map[string]entity.CreateRefundRequest)
	}

	refundID := "re_" + uuid.NewString()
	c.Refunds[refundID] = request

	return entity.ProviderRefund{
		RefundID:  refundID,
		Amount:    request.Amount,
		Status:    entity.RefundStatusSucceeded,
		CreatedAt: time.Now().UTC(),
		ProviderData: map[string]string{
			"refund_id": refundID,
			"status":    string(entity.RefundStatusSucceeded),
		},
	}, nil
}

func (c *PaymentGatewayMock) VerifyWebhookEvent(payload []byte, signatureHeader string) (entity.ProviderEvent, error) {
	return ParseStripeEvent(payload, signatureHeader, c.WebhookSecret)
}

func (c *PaymentGatewayMock) IntentFor(paymentID string) (entity.CreateIntentRequest, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	request, ok := c.Intents["pi_"+paymentID]
	return request, ok
}

func (c *PaymentGatewayMock) RefundsFor(paymentID string) []entity.CreateRefundRequest {
	c.lock.Lock()
	defer c.lock.Unlock()

	var refunds []entity.CreateRefundRequest
	for _, r := range c.Refunds {
		if r.PaymentID == paymentID {
			refunds = append(refunds, r)
		}
	}
	return refunds
}

// SignStripeEvent builds a signed webhook body in the Stripe event envelope.
func SignStripeEvent(secret string, eventID string, eventType entity.ProviderEventType, object any) (payload []byte, header string, err error) {
	payload, err = stripeEventPayload(eventID, eventType, object)
	if err != nil {
		return nil, "", fmt.Errorf("could not build stripe event: %w", err)
	}

	return payload, signPayload(payload, secret), nil
}
