package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"travel/entity"
)

// StripeIntentObject is the data.object of a payment_intent.* event.
func StripeIntentObject(intentID, chargeID string, amount decimal.Decimal, currency string) map[string]any {
	object := map[string]any{
		"id":       intentID,
		"object":   "payment_intent",
		"amount":   entity.MinorUnits(amount),
		"currency": strings.ToLower(currency),
	}
	if chargeID != "" {
		object["latest_charge"] = chargeID
	}
	return object
}

// StripeChargeObject is the data.object of a charge.refunded event. Without refunds the object
// carries no refund list, as Stripe sends it unless the list is expanded.
func StripeChargeObject(chargeID, intentID string, amount, amountRefunded decimal.Decimal, currency string, refunds ...entity.ProviderRefund) map[string]any {
	object := map[string]any{
		"id":              chargeID,
		"object":          "charge",
		"payment_intent":  intentID,
		"amount":          entity.MinorUnits(amount),
		"amount_refunded": entity.MinorUnits(amountRefunded),
		"currency":        strings.ToLower(currency),
	}
	if len(refunds) == 0 {
		return object
	}

	refundObjects := make([]map[string]any, 0, len(refunds))
	for _, r := range refunds {
		refundObjects = append(refundObjects, map[string]any{
			"id":             r.RefundID,
			"object":         "refund",
			"amount":         entity.MinorUnits(r.Amount),
			"status":         string(r.Status),
			"created":        r.CreatedAt.Unix(),
			"charge":         chargeID,
			"payment_intent": intentID,
		})
	}
	object["refunds"] = map[string]any{
		"object": "list",
		"data":   refundObjects,
	}

	return object
}

func stripeEventPayload(eventID string, eventType entity.ProviderEventType, object any) ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        string(eventType),
		"created":     time.Now().Unix(),
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": object,
		},
	})
}

func signPayload(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}
