package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const maxWebhookBodySize = 1 << 20

// PostStripeWebhook reads the raw body: the signature covers the exact bytes sent.
func (s Server) PostStripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodySize))
	if err != nil {
		return fmt.Errorf("could not read webhook body: %w", err)
	}

	outcome, err := s.stripeWebhooks.Process(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"outcome": string(outcome)})
}
