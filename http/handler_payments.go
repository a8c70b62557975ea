package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"travel/entity"
	"travel/ledger"
)

type postPaymentRequest struct {
	BookingID string  `json:"booking_id"`
	Amount    *string `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
	Provider  string  `json:"provider"`
}

type postPaymentResponse struct {
	Payment      paymentResponse   `json:"payment"`
	ClientSecret string            `json:"client_secret,omitempty"`
	ProviderData map[string]string `json:"provider_data,omitempty"`
}

type patchPaymentStatusRequest struct {
	PaymentStatus string            `json:"payment_status"`
	TransactionID *string           `json:"transaction_id"`
	Metadata      map[string]string `json:"metadata"`
}

type postRefundRequest struct {
	Amount   *string           `json:"amount"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata"`
}

type paymentResultResponse struct {
	Payment       paymentResponse       `json:"payment"`
	BookingStatus string                `json:"booking_status"`
	Refund        *issuedRefundResponse `json:"refund,omitempty"`
}

type issuedRefundResponse struct {
	refundResponse
	ProviderData map[string]string `json:"provider_data"`
}

func (s Server) PostPayment(c echo.Context) error {
	var request postPaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	amount, err := parseOptionalAmount(request.Amount)
	if err != nil {
		return err
	}

	provider := request.Provider
	if provider == "" {
		provider = entity.ProviderStripe
	}

	created, err := s.ledger.CreatePayment(c.Request().Context(), actor(c), entity.NewPaymentParams{
		BookingID: request.BookingID,
		Amount:    amount,
		Currency:  request.Currency,
		Method:    request.Method,
		Provider:  provider,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, postPaymentResponse{
		Payment:      newPaymentResponse(created.Payment),
		ClientSecret: created.ClientSecret,
		ProviderData: created.ProviderData,
	})
}

func (s Server) GetPayment(c echo.Context) error {
	payment, err := s.ledger.GetPayment(c.Request().Context(), actor(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newPaymentResponse(payment))
}

func (s Server) PatchPaymentStatus(c echo.Context) error {
	var request patchPaymentStatusRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	status, err := entity.ParsePaymentStatus(request.PaymentStatus)
	if err != nil {
		return err
	}

	result, err := s.ledger.UpdatePaymentStatus(c.Request().Context(), actor(c), c.Param("id"), ledger.PaymentStatusChange{
		Status:        status,
		TransactionID: request.TransactionID,
		Metadata:      request.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newPaymentResultResponse(result))
}

func (s Server) PostRefund(c echo.Context) error {
	var request postRefundRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	amount, err := parseOptionalAmount(request.Amount)
	if err != nil {
		return err
	}

	result, err := s.ledger.Refund(c.Request().Context(), actor(c), c.Param("id"), ledger.RefundRequest{
		Amount:   amount,
		Reason:   request.Reason,
		Metadata: request.Metadata,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newPaymentResultResponse(result))
}

func newPaymentResultResponse(result ledger.PaymentResult) paymentResultResponse {
	response := paymentResultResponse{
		Payment:       newPaymentResponse(result.Payment),
		BookingStatus: string(result.BookingStatus),
	}

	if result.Refund != nil {
		providerData := result.Refund.ProviderData
		if providerData == nil {
			providerData = map[string]string{}
		}
		response.Refund = &issuedRefundResponse{
			refundResponse: newRefundResponse(result.Refund.RefundRecord),
			ProviderData:   providerData,
		}
	}

	return response
}

func parseOptionalAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}

	amount, err := entity.ParseAmount(*s)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}
