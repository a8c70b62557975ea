package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
	// a completed booking is only cancelled when its payments were fully refunded
	BookingStatusCompleted: {BookingStatusCancelled},
	BookingStatusCancelled: nil,
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	BookingID  string          `json:"booking_id" db:"booking_id"`
	CustomerID string          `json:"customer_id" db:"customer_id"`
	PackageID  *string         `json:"package_id,omitempty" db:"package_id"`
	Status     BookingStatus   `json:"status" db:"status"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Currency   string          `json:"currency" db:"currency"`
	StartDate  time.Time       `json:"start_date" db:"start_date"`
	EndDate    time.Time       `json:"end_date" db:"end_date"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`

	LineItems []BookingLineItem `json:"line_items" db:"-"`
}

// BookingLineItem is a booked activity instance. PriceAtBooking is never updated once written.
type BookingLineItem struct {
	LineItemID     string          `json:"line_item_id" db:"line_item_id"`
	BookingID      string          `json:"booking_id" db:"booking_id"`
	ActivityID     string          `json:"activity_id" db:"activity_id"`
	GuideID        *string         `json:"guide_id,omitempty" db:"guide_id"`
	PriceAtBooking decimal.Decimal `json:"price_at_booking" db:"price_at_booking"`
	ScheduledAt    *time.Time      `json:"scheduled_at,omitempty" db:"scheduled_at"`
}

type LineItemRequest struct {
	ActivityID  string
	GuideID     *string
	ScheduledAt *time.Time
}

type NewBookingParams struct {
	CustomerID string
	Items      []LineItemRequest
	PackageID  *string
	StartDate  time.Time
	EndDate    time.Time
	Notes      *string
}

func (p NewBookingParams) ActivityIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ActivityID)
	}
	return ids
}

func ValidateDateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return validationErrorf("start and end dates are required")
	}
	if !end.After(start) {
		return validationErrorf("end date must be after start date")
	}
	return nil
}

// NewBooking builds a pending booking whose total and line item prices come from the snapshot.
func NewBooking(params NewBookingParams, snapshot PriceSnapshot, now time.Time) (Booking, error) {
	if params.CustomerID == "" {
		return Booking{}, validationErrorf("customer must be set")
	}
	if err := ValidateDateRange(params.StartDate, params.EndDate); err != nil {
		return Booking{}, err
	}
	if len(params.Items) == 0 {
		return Booking{}, validationErrorf("at least one activity is required")
	}

	booking := Booking{
		BookingID:  uuid.NewString(),
		CustomerID: params.CustomerID,
		PackageID:  params.PackageID,
		Status:     BookingStatusPending,
		TotalPrice: snapshot.Total,
		Currency:   snapshot.Currency,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		Notes:      params.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, item := range params.Items {
		price, ok := snapshot.ActivityPrices[item.ActivityID]
		if !ok {
			return Booking{}, validationErrorf("activity %s missing from price snapshot", item.ActivityID)
		}

		booking.LineItems = append(booking.LineItems, BookingLineItem{
			LineItemID:     uuid.NewString(),
			BookingID:      booking.BookingID,
			ActivityID:     item.ActivityID,
			GuideID:        item.GuideID,
			PriceAtBooking: price,
			ScheduledAt:    item.ScheduledAt,
		})
	}

	return booking, nil
}

// BookingUpdate holds the customer-editable fields of a booking. Nil fields are left untouched.
type BookingUpdate struct {
	StartDate *time.Time
	EndDate   *time.Time
	Notes     *string
}

func (b *Booking) Apply(update BookingUpdate, now time.Time) error {
	if b.Status == BookingStatusCancelled {
		return invalidStatef("booking %s is cancelled", b.BookingID)
	}

	start, end := b.StartDate, b.EndDate
	if update.StartDate != nil {
		start = *update.StartDate
	}
	if update.EndDate != nil {
		end = *update.EndDate
	}
	if err := ValidateDateRange(start, end); err != nil {
		return err
	}

	b.StartDate, b.EndDate = start, end
	if update.Notes != nil {
		b.Notes = update.Notes
	}
	b.UpdatedAt = now

	return nil
}
