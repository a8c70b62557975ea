package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusProcessing:        {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusFailed:            {PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted},
	PaymentStatusCompleted:         {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded},
	PaymentStatusRefunded:          nil,
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := paymentTransitions[status]; !ok {
		return "", validationErrorf("unknown payment status %q", s)
	}
	return status, nil
}

// CanTransitionTo reports whether a payment may move to next. Staying in the same status is
// always allowed so that redelivered updates converge.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Live payments hold or may still hold money against the booking.
func (s PaymentStatus) Live() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) InFlight() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

func (s PaymentStatus) Refundable() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusPartiallyRefunded
}

const (
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)

type Payment struct {
	PaymentID     string          `json:"payment_id" db:"payment_id"`
	BookingID     string          `json:"booking_id" db:"booking_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	Method        string          `json:"method" db:"method"`
	Status        PaymentStatus   `json:"status" db:"status"`
	TransactionID *string         `json:"transaction_id,omitempty" db:"transaction_id"`
	IntentID      *string         `json:"intent_id,omitempty" db:"intent_id"`
	Provider      string          `json:"provider" db:"provider"`
	Refunds       RefundRecords   `json:"refunds" db:"refunds"`
	Metadata      Metadata        `json:"metadata" db:"metadata"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

func (p Payment) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundStatusFailed {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

func (p Payment) RefundableAmount() decimal.Decimal {
	remaining := p.Amount.Sub(p.RefundedAmount())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

type RefundRecord struct {
	RefundID  string          `json:"refund_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	Actor     string          `json:"actor"`
	Status    RefundStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type RefundRecords []RefundRecord

func (r RefundRecords) Contains(refundID string) bool {
	for _, record := range r {
		if record.RefundID == refundID {
			return true
		}
	}
	return false
}

func (r RefundRecords) Value() (driver.Value, error) {
	if r == nil {
		r = RefundRecords{}
	}
	return json.Marshal(r)
}

func (r *RefundRecords) Scan(src any) error {
	return scanJSON(src, r)
}

// Metadata is an open, provider-specific extension map.
type Metadata map[string]string

func (m Metadata) Merge(patch map[string]string) Metadata {
	if len(patch) == 0 {
		return m
	}
	merged := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for json column", src)
	}
	return json.Unmarshal(data, dst)
}

type NewPaymentParams struct {
	BookingID string
	Amount    *decimal.Decimal
	Currency  string
	Method    string
	Provider  string
}
