package http

import (
	"time"

	"travel/entity"
)

type lineItemResponse struct {
	LineItemID     string       `json:"line_item_id"`
	ActivityID     string       `json:"activity_id"`
	GuideID        *string      `json:"guide_id,omitempty"`
	PriceAtBooking entity.Money `json:"price_at_booking"`
	ScheduledAt    *time.Time   `json:"scheduled_at,omitempty"`
}

type bookingResponse struct {
	BookingID  string             `json:"booking_id"`
	CustomerID string             `json:"customer_id"`
	PackageID  *string            `json:"package_id,omitempty"`
	Status     string             `json:"status"`
	TotalPrice entity.Money       `json:"total_price"`
	StartDate  time.Time          `json:"start_date"`
	EndDate    time.Time          `json:"end_date"`
	Notes      *string            `json:"notes,omitempty"`
	LineItems  []lineItemResponse `json:"line_items"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func newBookingResponse(b entity.Booking) bookingResponse {
	items := make([]lineItemResponse, 0, len(b.LineItems))
	for _, item := range b.LineItems {
		items = append(items, lineItemResponse{
			LineItemID:     item.LineItemID,
			ActivityID:     item.ActivityID,
			GuideID:        item.GuideID,
			PriceAtBooking: entity.NewMoney(item.PriceAtBooking, b.Currency),
			ScheduledAt:    item.ScheduledAt,
		})
	}

	return bookingResponse{
		BookingID:  b.BookingID,
		CustomerID: b.CustomerID,
		PackageID:  b.PackageID,
		Status:     string(b.Status),
		TotalPrice: entity.NewMoney(b.TotalPrice, b.Currency),
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Notes:      b.Notes,
		LineItems:  items,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

type refundResponse struct {
	RefundID  string    `json:"refund_id"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func newRefundResponse(r entity.RefundRecord) refundResponse {
	return refundResponse{
		RefundID:  r.RefundID,
		Amount:    entity.FormatAmount(r.Amount),
		Reason:    r.Reason,
		Actor:     r.Actor,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

type paymentResponse struct {
	PaymentID     string            `json:"payment_id"`
	BookingID     string            `json:"booking_id"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Method        string            `json:"method"`
	Status        string            `json:"status"`
	TransactionID *string           `json:"transaction_id,omitempty"`
	IntentID      *string           `json:"intent_id,omitempty"`
	Provider      string            `json:"provider"`
	Refunds       []refundResponse  `json:"refunds"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func newPaymentResponse(p entity.Payment) paymentResponse {
	refunds := make([]refundResponse, 0, len(p.Refunds))
	for _, r := range p.Refunds {
		refunds = append(refunds, newRefundResponse(r))
	}

	metadata := map[string]string(p.Metadata)
	if metadata == nil {
		metadata = map[string]string{}
	}

	return paymentResponse{
		PaymentID:     p.PaymentID,
		BookingID:     p.BookingID,
		Amount:        entity.FormatAmount(p.Amount),
		Currency:      p.Currency,
		Method:        p.Method,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		IntentID:      p.IntentID,
		Provider:      p.Provider,
		Refunds:       refunds,
		Metadata:      metadata,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type paymentSummaryResponse struct {
	BookingID     string `json:"booking_id"`
	PaymentStatus string `json:"payment_status"`
	TotalPrice    string `json:"total_price"`
	TotalPaid     string `json:"total_paid"`
	TotalRefunded string `json:"total_refunded"`
	BalanceDue    string `json:"balance_due"`
	Currency      string `json:"currency"`
	Payments      int    `json:"payments"`
}

func newPaymentSummaryResponse(s entity.PaymentSummary) paymentSummaryResponse {
	return paymentSummaryResponse{
		BookingID:     s.BookingID,
		PaymentStatus: string(s.Status),
		TotalPrice:    entity.FormatAmount(s.TotalPrice),
		TotalPaid:     entity.FormatAmount(s.TotalPaid),
		TotalRefunded: entity.FormatAmount(s.TotalRefunded),
		BalanceDue:    entity.FormatAmount(s.BalanceDue),
		Currency:      s.Currency,
		Payments:      s.Payments,
	}
}
