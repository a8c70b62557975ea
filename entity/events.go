package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingCreated_v1 struct {
	Header EventHeader `json:"header"`

	BookingID  string    `json:"booking_id"`
	CustomerID string    `json:"customer_id"`
	PackageID  *string   `json:"package_id,omitempty"`
	TotalPrice Money     `json:"total_price"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Activities int       `json:"activities"`
}

type BookingConfirmed_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string `json:"booking_id"`
	TotalPaid Money  `json:"total_paid"`
}

type BookingCancelled_v1 struct {
	Header EventHeader `json:"header"`

	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

type PaymentCreated_v1 struct {
	Header EventHeader `json:"header"`

	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	Amount    Money  `json:"amount"`
	Method    string `json:"method"`
	Provider  string `json:"provider"`
}

type PaymentStatusChanged_v1 struct {
	Header EventHeader `json:"header"`

	PaymentID      string        `json:"payment_id"`
	BookingID      string        `json:"booking_id"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	Status         PaymentStatus `json:"status"`
	TransactionID  *string       `json:"transaction_id,omitempty"`
}

type PaymentRefunded_v1 struct {
	Header EventHeader `json:"header"`

	PaymentID     string `json:"payment_id"`
	BookingID     string `json:"booking_id"`
	RefundID      string `json:"refund_id"`
	Amount        Money  `json:"amount"`
	TotalRefunded Money  `json:"total_refunded"`
	FullyRefunded bool   `json:"fully_refunded"`
}

// DataLakeEvent is a published domain event stored as-is for replays.
type DataLakeEvent struct {
	ID          string    `db:"event_id"`
	PublishedAt time.Time `db:"published_at"`
	Name        string    `db:"event_name"`
	Payload     []byte    `db:"event_payload"`
}
