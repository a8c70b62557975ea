package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"travel/entity"
	"travel/metrics"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the API base URL, e.g. for stripe-mock.
	APIURL string
}

// StripeGateway implements entity.PaymentGateway with Stripe payment intents and refunds.
type StripeGateway struct {
	client        *client.API
	webhookSecret string
}

func NewStripeGateway(config StripeConfig) *StripeGateway {
	backendConfig := &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		LeveledLogger:     log.FromContext(context.Background()),
		MaxNetworkRetries: stripe.Int64(0),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripe.String(config.APIURL)
	}

	sc := &client.API{}
	sc.Init(config.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})

	return &StripeGateway{
		client:        sc,
		webhookSecret: config.WebhookSecret,
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, request entity.CreateIntentRequest) (entity.PaymentIntent, error) {
	defer observe("create_intent")()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(entity.MinorUnits(request.Amount)),
		Currency: stripe.String(toStripeCurrency(request.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if request.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(request.IdempotencyKey)
	}
	params.AddMetadata("payment_id", request.PaymentID)
	params.AddMetadata("booking_id", request.BookingID)
	params.AddMetadata("method", request.Method)

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return entity.PaymentIntent{}, mapStripeError("create_intent", err)
	}

	return entity.PaymentIntent{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		ProviderData: map[string]string{
			"intent_id": pi.ID,
			"status":    string(pi.Status),
		},
	}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, request entity.CreateRefundRequest) (entity.ProviderRefund, error) {
	defer observe("create_refund")()

	params := &stripe.RefundParams{
		Amount: stripe.Int64(entity.MinorUnits(request.Amount)),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	switch {
	case request.IntentID != nil:
		params.PaymentIntent = request.IntentID
	case request.TransactionID != nil:
		params.Charge = request.TransactionID
	default:
		return entity.ProviderRefund{}, &entity.GatewayError{
			Provider:  entity.ProviderStripe,
			Operation: "create_refund",
			Detail:    "payment has neither intent nor charge id",
		}
	}
	params.Context = ctx
	if request.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(request.IdempotencyKey)
	}
	params.AddMetadata("payment_id", request.PaymentID)
	if request.Reason != "" {
		params.AddMetadata("reason", request.Reason)
	}

	refund, err := g.client.Refunds.New(params)
	if err != nil {
		return entity.ProviderRefund{}, mapStripeError("create_refund", err)
	}

	status := refundStatus(refund.Status)
	if status == entity.RefundStatusFailed {
		return entity.ProviderRefund{}, &entity.GatewayError{
			Provider:  entity.ProviderStripe,
			Operation: "create_refund",
			Detail:    fmt.Sprintf("refund %s is %s", refund.ID, refund.Status),
		}
	}

	return entity.ProviderRefund{
		RefundID:  refund.ID,
		Amount:    entity.FromMinorUnits(refund.Amount),
		Status:    status,
		CreatedAt: time.Unix(refund.Created, 0).UTC(),
		ProviderData: map[string]string{
			"refund_id": refund.ID,
			"status":    string(refund.Status),
		},
	}, nil
}

func (g *StripeGateway) VerifyWebhookEvent(payload []byte, signatureHeader string) (entity.ProviderEvent, error) {
	return ParseStripeEvent(payload, signatureHeader, g.webhookSecret)
}

// ParseStripeEvent verifies the Stripe-Signature header over the raw payload and normalizes the
// event. Event types that reconciliation does not handle are returned with only id and type set.
func ParseStripeEvent(payload []byte, signatureHeader string, secret string) (entity.ProviderEvent, error) {
	if secret == "" {
		return entity.ProviderEvent{}, fmt.Errorf("stripe webhook secret is not set: %w", entity.ErrConfiguration)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return entity.ProviderEvent{}, fmt.Errorf("%w: %s", entity.ErrSignature, err)
	}

	normalized := entity.ProviderEvent{
		EventID:   event.ID,
		Type:      entity.ProviderEventType(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return normalized, nil
	}

	switch normalized.Type {
	case entity.ProviderEventPaymentSucceeded, entity.ProviderEventPaymentFailed, entity.ProviderEventPaymentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return entity.ProviderEvent{}, fmt.Errorf("%w: could not decode payment intent: %s", entity.ErrValidation, err)
		}

		normalized.IntentID = pi.ID
		normalized.Currency = normalizeStripeCurrency(pi.Currency)
		normalized.Amount = entity.FromMinorUnits(pi.Amount)
		// the charge id is the settled transaction; fall back to the intent for charge-less flows
		normalized.TransactionID = pi.ID
		if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
			normalized.TransactionID = pi.LatestCharge.ID
		}
		if pi.LastPaymentError != nil {
			normalized.FailureMessage = pi.LastPaymentError.Msg
		}
	case entity.ProviderEventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return entity.ProviderEvent{}, fmt.Errorf("%w: could not decode charge: %s", entity.ErrValidation, err)
		}

		normalized.TransactionID = charge.ID
		if charge.PaymentIntent != nil {
			normalized.IntentID = charge.PaymentIntent.ID
		}
		normalized.Currency = normalizeStripeCurrency(charge.Currency)
		normalized.Amount = entity.FromMinorUnits(charge.Amount)
		normalized.AmountRefunded = entity.FromMinorUnits(charge.AmountRefunded)

		if charge.Refunds != nil {
			for _, r := range charge.Refunds.Data {
				if r == nil {
					continue
				}
				normalized.Refunds = append(normalized.Refunds, entity.ProviderRefund{
					RefundID:  r.ID,
					Amount:    entity.FromMinorUnits(r.Amount),
					Status:    refundStatus(r.Status),
					CreatedAt: time.Unix(r.Created, 0).UTC(),
				})
			}
		}
	}

	return normalized, nil
}

func mapStripeError(operation string, err error) error {
	gatewayErr := &entity.GatewayError{
		Provider:  entity.ProviderStripe,
		Operation: operation,
		Detail:    err.Error(),
		Err:       err,
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		gatewayErr.Detail = stripeErr.Msg
		if stripeErr.Code != "" {
			gatewayErr.Detail = fmt.Sprintf("%s (%s)", stripeErr.Msg, stripeErr.Code)
		}
	}

	return gatewayErr
}

func refundStatus(status stripe.RefundStatus) entity.RefundStatus {
	switch status {
	case stripe.RefundStatusSucceeded:
		return entity.RefundStatusSucceeded
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return entity.RefundStatusFailed
	default:
		return entity.RefundStatusPending
	}
}

func toStripeCurrency(currency string) string {
	return strings.ToLower(currency)
}

func normalizeStripeCurrency(currency stripe.Currency) string {
	return strings.ToUpper(string(currency))
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		metrics.GatewayCallDuration.
			WithLabelValues(entity.ProviderStripe, operation).
			Observe(time.Since(start).Seconds())
	}
}
