package entity

import (
	"time"
)

// OpsBooking is the operations team's denormalized view of a booking, built from domain events.
type OpsBooking struct {
	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	BookedAt   time.Time `json:"booked_at"`

	Status     BookingStatus `json:"status"`
	TotalPrice Money         `json:"total_price"`
	StartDate  time.Time     `json:"start_date"`
	EndDate    time.Time     `json:"end_date"`

	Payments map[string]OpsPayment `json:"payments"`

	ConfirmedAt   time.Time `json:"confirmed_at,omitempty"`
	CancelledAt   time.Time `json:"cancelled_at,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	TotalRefunded Money     `json:"total_refunded"`

	LastUpdate time.Time `json:"last_update"`
}

type OpsPayment struct {
	Amount   Money         `json:"amount"`
	Method   string        `json:"method"`
	Provider string        `json:"provider"`
	Status   PaymentStatus `json:"status"`

	TransactionID string    `json:"transaction_id,omitempty"`
	Refunded      Money     `json:"refunded"`
	CreatedAt     time.Time `json:"created_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
	RefundedAt    time.Time `json:"refunded_at,omitempty"`

	// publish time of the last applied status change, older changes are skipped
	StatusChangedAt time.Time `json:"status_changed_at"`
}
