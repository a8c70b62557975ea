package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingAccount is a booking together with every payment made against it. All reconciliation
// rules operate on it; repositories load it under a per-booking lock and persist it afterwards,
// together with the events it collected.
type BookingAccount struct {
	Booking  Booking
	Payments []Payment

	events []any
}

func NewBookingAccount(booking Booking, payments []Payment) *BookingAccount {
	return &BookingAccount{
		Booking:  booking,
		Payments: payments,
	}
}

// Events returns the domain events recorded since the account was loaded.
func (a *BookingAccount) Events() []any {
	return a.events
}

func (a *BookingAccount) record(event any) {
	a.events = append(a.events, event)
}

func (a *BookingAccount) Payment(paymentID string) (*Payment, error) {
	for i := range a.Payments {
		if a.Payments[i].PaymentID == paymentID {
			return &a.Payments[i], nil
		}
	}
	return nil, fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
}

// TotalPaid is the money collected for the booking: completed payments plus partially refunded
// ones, whose money was taken and only partly returned.
func (a *BookingAccount) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Payments {
		if p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPartiallyRefunded {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func (a *BookingAccount) TotalRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, p := range a.Payments {
		total = total.Add(p.RefundedAmount())
	}
	return total
}

func (a *BookingAccount) RemainingBalance() decimal.Decimal {
	remaining := a.Booking.TotalPrice.Sub(a.TotalPaid())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// PreparePayment validates a new payment against the booking and returns it in pending status.
// It does not add the payment to the account: the caller first obtains an external intent.
func (a *BookingAccount) PreparePayment(params NewPaymentParams, now time.Time) (Payment, error) {
	if a.Booking.Status == BookingStatusCancelled {
		return Payment{}, invalidStatef("booking %s is cancelled", a.Booking.BookingID)
	}

	currency, err := NormalizeCurrency(params.Currency)
	if err != nil {
		return Payment{}, err
	}
	if currency != a.Booking.Currency {
		return Payment{}, validationErrorf("payment currency %s does not match booking currency %s", currency, a.Booking.Currency)
	}

	if params.Method == "" {
		return Payment{}, validationErrorf("payment method must be set")
	}
	if params.Provider == "" {
		return Payment{}, validationErrorf("payment provider must be set")
	}

	amount := a.Booking.TotalPrice
	if params.Amount != nil {
		amount = *params.Amount
	}

	if !amount.IsPositive() {
		return Payment{}, invalidAmountf("amount must be greater than zero")
	}
	if amount.GreaterThan(a.Booking.TotalPrice) {
		return Payment{}, invalidAmountf(
			"amount %s exceeds booking total %s", FormatAmount(amount), FormatAmount(a.Booking.TotalPrice),
		)
	}
	if remaining := a.RemainingBalance(); amount.GreaterThan(remaining) {
		return Payment{}, invalidAmountf(
			"amount %s exceeds remaining balance %s", FormatAmount(amount), FormatAmount(remaining),
		)
	}

	return Payment{
		PaymentID: uuid.NewString(),
		BookingID: a.Booking.BookingID,
		Amount:    amount.Round(amountFractionDigits),
		Currency:  currency,
		Method:    params.Method,
		Status:    PaymentStatusPending,
		Provider:  params.Provider,
		Refunds:   RefundRecords{},
		Metadata:  Metadata{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *BookingAccount) AddPayment(payment Payment) {
	a.Payments = append(a.Payments, payment)

	a.record(PaymentCreated_v1{
		Header:    NewEventHeaderWithIdempotencyKey(payment.PaymentID),
		PaymentID: payment.PaymentID,
		BookingID: payment.BookingID,
		Amount:    NewMoney(payment.Amount, payment.Currency),
		Method:    payment.Method,
		Provider:  payment.Provider,
	})
}

type PaymentStatusUpdate struct {
	Status        PaymentStatus
	TransactionID *string
	Metadata      map[string]string
	Actor         string
}

// SetPaymentStatus moves a payment to an absolute status. Applying the same update twice leaves
// the account unchanged.
func (a *BookingAccount) SetPaymentStatus(paymentID string, update PaymentStatusUpdate, now time.Time) error {
	payment, err := a.Payment(paymentID)
	if err != nil {
		return err
	}

	if !payment.Status.CanTransitionTo(update.Status) {
		return invalidStatef("payment %s cannot move from %s to %s", paymentID, payment.Status, update.Status)
	}

	previous := payment.Status
	changed := previous != update.Status

	if update.TransactionID != nil && (payment.TransactionID == nil || *payment.TransactionID != *update.TransactionID) {
		payment.TransactionID = update.TransactionID
		changed = true
	}
	if len(update.Metadata) > 0 {
		payment.Metadata = payment.Metadata.Merge(update.Metadata)
		changed = true
	}

	if update.Status == PaymentStatusRefunded && previous != PaymentStatusRefunded {
		// refunded outside of the gateway; keep the history complete
		if remaining := payment.RefundableAmount(); remaining.IsPositive() {
			payment.Refunds = append(payment.Refunds, RefundRecord{
				RefundID:  "manual-" + uuid.NewString(),
				Amount:    remaining,
				Reason:    "marked refunded by status update",
				Actor:     update.Actor,
				Status:    RefundStatusSucceeded,
				CreatedAt: now,
			})
		}
	}

	payment.Status = update.Status
	if !changed {
		return nil
	}
	payment.UpdatedAt = now

	if previous != update.Status {
		a.record(PaymentStatusChanged_v1{
			Header:         NewEventHeader(),
			PaymentID:      payment.PaymentID,
			BookingID:      payment.BookingID,
			PreviousStatus: previous,
			Status:         update.Status,
			TransactionID:  payment.TransactionID,
		})
	}

	return nil
}

// RefundAmount resolves the amount of a refund request: the remaining refundable amount when
// requested is nil.
func (a *BookingAccount) RefundAmount(paymentID string, requested *decimal.Decimal) (decimal.Decimal, error) {
	payment, err := a.Payment(paymentID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if !payment.Status.Refundable() {
		return decimal.Decimal{}, invalidStatef("payment %s in status %s cannot be refunded", paymentID, payment.Status)
	}

	remaining := payment.RefundableAmount()
	if requested == nil {
		return remaining, nil
	}

	amount := *requested
	if !amount.IsPositive() {
		return decimal.Decimal{}, invalidAmountf("refund amount must be greater than zero")
	}
	if amount.GreaterThan(payment.Amount) {
		return decimal.Decimal{}, invalidAmountf(
			"refund amount %s exceeds payment amount %s", FormatAmount(amount), FormatAmount(payment.Amount),
		)
	}
	if amount.GreaterThan(remaining) {
		return decimal.Decimal{}, invalidAmountf(
			"refund amount %s exceeds refundable amount %s", FormatAmount(amount), FormatAmount(remaining),
		)
	}

	return amount, nil
}

// RecordRefund appends a refund to the payment history and derives the payment status from the
// cumulative refunded amount.
func (a *BookingAccount) RecordRefund(paymentID string, refund RefundRecord, now time.Time) error {
	payment, err := a.Payment(paymentID)
	if err != nil {
		return err
	}
	if payment.Refunds.Contains(refund.RefundID) {
		return nil
	}
	if !payment.Status.Refundable() {
		return invalidStatef("payment %s in status %s cannot be refunded", paymentID, payment.Status)
	}

	payment.Refunds = append(payment.Refunds, refund)
	a.applyRefundedTotal(payment, payment.RefundedAmount(), refund, now)

	return nil
}

// ProviderRefundSync is the provider's view of a refunded charge.
type ProviderRefundSync struct {
	ChargeID       string
	AmountRefunded decimal.Decimal
	// Refunds may be empty: charge events list their refunds only when expanded.
	Refunds []RefundRecord
	Actor   string
}

// SyncProviderRefunds applies the provider's view of a charge refund: refunds the provider knows
// about that are missing locally, then a record for any cumulative amount still not covered by
// the local history.
func (a *BookingAccount) SyncProviderRefunds(paymentID string, sync ProviderRefundSync, now time.Time) error {
	payment, err := a.Payment(paymentID)
	if err != nil {
		return err
	}

	var last RefundRecord
	for _, refund := range sync.Refunds {
		if payment.Refunds.Contains(refund.RefundID) {
			continue
		}
		payment.Refunds = append(payment.Refunds, refund)
		last = refund
	}

	if gap := sync.AmountRefunded.Sub(payment.RefundedAmount()); gap.IsPositive() {
		// derived from the cumulative amount, so a redelivered event maps to the same record
		refund := RefundRecord{
			RefundID:  fmt.Sprintf("%s-%d", sync.ChargeID, MinorUnits(sync.AmountRefunded)),
			Amount:    gap,
			Reason:    "refunded at provider",
			Actor:     sync.Actor,
			Status:    RefundStatusSucceeded,
			CreatedAt: now,
		}
		if !payment.Refunds.Contains(refund.RefundID) {
			payment.Refunds = append(payment.Refunds, refund)
			last = refund
		}
	}

	refunded := payment.RefundedAmount()
	if !refunded.IsPositive() {
		return nil
	}

	next := PaymentStatusPartiallyRefunded
	if refunded.GreaterThanOrEqual(payment.Amount) {
		next = PaymentStatusRefunded
	}
	if payment.Status == PaymentStatusRefunded && next == PaymentStatusPartiallyRefunded {
		return invalidStatef("payment %s is already fully refunded", paymentID)
	}
	if last.RefundID == "" {
		if payment.Status == next {
			return nil
		}
		last = payment.Refunds[len(payment.Refunds)-1]
	}

	a.applyRefundedTotal(payment, refunded, last, now)

	return nil
}

func (a *BookingAccount) applyRefundedTotal(payment *Payment, refunded decimal.Decimal, refund RefundRecord, now time.Time) {
	previous := payment.Status

	payment.Status = PaymentStatusPartiallyRefunded
	if refunded.GreaterThanOrEqual(payment.Amount) {
		payment.Status = PaymentStatusRefunded
	}
	payment.UpdatedAt = now

	a.record(PaymentRefunded_v1{
		Header:        NewEventHeaderWithIdempotencyKey(refund.RefundID),
		PaymentID:     payment.PaymentID,
		BookingID:     payment.BookingID,
		RefundID:      refund.RefundID,
		Amount:        NewMoney(refund.Amount, payment.Currency),
		TotalRefunded: NewMoney(refunded, payment.Currency),
		FullyRefunded: payment.Status == PaymentStatusRefunded,
	})

	if previous != payment.Status {
		a.record(PaymentStatusChanged_v1{
			Header:         NewEventHeader(),
			PaymentID:      payment.PaymentID,
			BookingID:      payment.BookingID,
			PreviousStatus: previous,
			Status:         payment.Status,
			TransactionID:  payment.TransactionID,
		})
	}
}

// Cancel cancels the booking. Cancelling twice is an InvalidState error.
func (a *BookingAccount) Cancel(reason string, now time.Time) error {
	if !a.Booking.Status.CanTransitionTo(BookingStatusCancelled) {
		return invalidStatef("booking %s in status %s cannot be cancelled", a.Booking.BookingID, a.Booking.Status)
	}

	a.Booking.Status = BookingStatusCancelled
	a.Booking.UpdatedAt = now

	a.record(BookingCancelled_v1{
		Header:    NewEventHeaderWithIdempotencyKey(a.Booking.BookingID + "-cancelled"),
		BookingID: a.Booking.BookingID,
		Reason:    reason,
	})

	return nil
}

// Reconcile derives the booking status from its payments. It confirms a pending booking once
// collected payments cover the total and cancels a booking once no payment is live any more and
// at least one of them was refunded.
func (a *BookingAccount) Reconcile(now time.Time) {
	switch {
	case a.Booking.Status == BookingStatusCancelled:
		return
	case a.Booking.Status == BookingStatusPending && a.fullyPaid():
		a.Booking.Status = BookingStatusConfirmed
		a.Booking.UpdatedAt = now

		a.record(BookingConfirmed_v1{
			Header:    NewEventHeaderWithIdempotencyKey(a.Booking.BookingID + "-confirmed"),
			BookingID: a.Booking.BookingID,
			TotalPaid: NewMoney(a.TotalPaid(), a.Booking.Currency),
		})
	case a.refundedOut():
		// cannot fail: every non-cancelled status may move to cancelled
		_ = a.Cancel("payments refunded", now)
	}
}

func (a *BookingAccount) fullyPaid() bool {
	paid := a.TotalPaid()
	return paid.IsPositive() && paid.GreaterThanOrEqual(a.Booking.TotalPrice)
}

func (a *BookingAccount) refundedOut() bool {
	if len(a.Payments) == 0 {
		return false
	}

	anyRefunded := false
	for _, p := range a.Payments {
		if p.Status.Live() {
			return false
		}
		if p.Status == PaymentStatusRefunded {
			anyRefunded = true
		}
	}
	return anyRefunded
}
