package entity

import "github.com/shopspring/decimal"

type PaymentSummaryStatus string

const (
	PaymentSummaryPaid          PaymentSummaryStatus = "paid"
	PaymentSummaryRefunded      PaymentSummaryStatus = "refunded"
	PaymentSummaryPartiallyPaid PaymentSummaryStatus = "partially_paid"
	PaymentSummaryPending       PaymentSummaryStatus = "pending"
	PaymentSummaryFailed        PaymentSummaryStatus = "failed"
	PaymentSummaryUnpaid        PaymentSummaryStatus = "unpaid"
)

type PaymentSummary struct {
	BookingID     string
	Status        PaymentSummaryStatus
	TotalPrice    decimal.Decimal
	TotalPaid     decimal.Decimal
	TotalRefunded decimal.Decimal
	BalanceDue    decimal.Decimal
	Currency      string
	Payments      int
}

// Summary derives the booking's payment view. It is never stored.
func (a *BookingAccount) Summary() PaymentSummary {
	summary := PaymentSummary{
		BookingID:     a.Booking.BookingID,
		TotalPrice:    a.Booking.TotalPrice,
		TotalPaid:     a.TotalPaid(),
		TotalRefunded: a.TotalRefunded(),
		BalanceDue:    a.RemainingBalance(),
		Currency:      a.Booking.Currency,
		Payments:      len(a.Payments),
	}

	var inFlight, refunded, failed bool
	for _, p := range a.Payments {
		switch {
		case p.Status.InFlight():
			inFlight = true
		case p.Status == PaymentStatusRefunded || p.Status == PaymentStatusPartiallyRefunded:
			refunded = true
		case p.Status == PaymentStatusFailed:
			failed = true
		}
	}

	switch {
	case summary.TotalPaid.IsPositive() && summary.TotalPaid.GreaterThanOrEqual(summary.TotalPrice):
		summary.Status = PaymentSummaryPaid
		if summary.TotalRefunded.IsPositive() {
			summary.Status = PaymentSummaryRefunded
		}
	case summary.TotalPaid.IsPositive():
		summary.Status = PaymentSummaryPartiallyPaid
	case inFlight:
		summary.Status = PaymentSummaryPending
	case refunded:
		summary.Status = PaymentSummaryRefunded
	case failed:
		summary.Status = PaymentSummaryFailed
	default:
		summary.Status = PaymentSummaryUnpaid
	}

	return summary
}
