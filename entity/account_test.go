package entity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/entity"
)

func newAccount(t *testing.T, total string) *entity.BookingAccount {
	t.Helper()

	return entity.NewBookingAccount(entity.Booking{
		BookingID:  "booking-1",
		CustomerID: "customer-1",
		Status:     entity.BookingStatusPending,
		TotalPrice: decimal.RequireFromString(total),
		Currency:   "USD",
	}, nil)
}

func addPayment(t *testing.T, account *entity.BookingAccount, amount string) entity.Payment {
	t.Helper()

	a := decimal.RequireFromString(amount)
	payment, err := account.PreparePayment(entity.NewPaymentParams{
		BookingID: account.Booking.BookingID,
		Amount:    &a,
		Currency:  "usd",
		Method:    "card",
		Provider:  entity.ProviderManual,
	}, time.Now())
	require.NoError(t, err)

	account.AddPayment(payment)
	return payment
}

func complete(t *testing.T, account *entity.BookingAccount, paymentID string) {
	t.Helper()

	err := account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{Status: entity.PaymentStatusCompleted}, time.Now())
	require.NoError(t, err)
	account.Reconcile(time.Now())
}

func refund(t *testing.T, account *entity.BookingAccount, paymentID string, amount string) {
	t.Helper()

	a := decimal.RequireFromString(amount)
	resolved, err := account.RefundAmount(paymentID, &a)
	require.NoError(t, err)

	err = account.RecordRefund(paymentID, entity.RefundRecord{
		RefundID:  "re_" + uuid.NewString(),
		Amount:    resolved,
		Actor:     "admin-1",
		Status:    entity.RefundStatusSucceeded,
		CreatedAt: time.Now(),
	}, time.Now())
	require.NoError(t, err)
	account.Reconcile(time.Now())
}

func TestBookingAccount_full_payment_confirms_booking(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")

	complete(t, account, payment.PaymentID)

	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)
	assert.Equal(t, entity.PaymentSummaryPaid, account.Summary().Status)
}

func TestBookingAccount_deposit_and_balance(t *testing.T) {
	account := newAccount(t, "300.00")

	deposit := addPayment(t, account, "100.00")
	complete(t, account, deposit.PaymentID)

	assert.Equal(t, entity.BookingStatusPending, account.Booking.Status)
	summary := account.Summary()
	assert.Equal(t, entity.PaymentSummaryPartiallyPaid, summary.Status)
	assert.Equal(t, "200.00", entity.FormatAmount(summary.BalanceDue))

	balance := addPayment(t, account, "200.00")
	complete(t, account, balance.PaymentID)

	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)
	assert.Equal(t, "300.00", entity.FormatAmount(account.TotalPaid()))
}

func TestBookingAccount_partial_then_full_refund(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")
	complete(t, account, payment.PaymentID)

	refund(t, account, payment.PaymentID, "150.00")

	p, err := account.Payment(payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, p.Status)
	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)

	refund(t, account, payment.PaymentID, "150.00")

	p, err = account.Payment(payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	assert.Len(t, p.Refunds, 2)
	assert.Equal(t, entity.BookingStatusCancelled, account.Booking.Status)
}

func TestBookingAccount_rejects_payment_over_total(t *testing.T) {
	account := newAccount(t, "300.00")

	amount := decimal.RequireFromString("400.00")
	_, err := account.PreparePayment(entity.NewPaymentParams{
		Amount:   &amount,
		Currency: "USD",
		Method:   "card",
		Provider: entity.ProviderManual,
	}, time.Now())

	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
	assert.Empty(t, account.Payments)
}

func TestBookingAccount_rejects_payment_over_remaining_balance(t *testing.T) {
	account := newAccount(t, "300.00")
	deposit := addPayment(t, account, "250.00")
	complete(t, account, deposit.PaymentID)

	amount := decimal.RequireFromString("100.00")
	_, err := account.PreparePayment(entity.NewPaymentParams{
		Amount:   &amount,
		Currency: "USD",
		Method:   "card",
		Provider: entity.ProviderManual,
	}, time.Now())

	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestBookingAccount_payment_defaults_to_total(t *testing.T) {
	account := newAccount(t, "300.00")

	payment, err := account.PreparePayment(entity.NewPaymentParams{
		Currency: "USD",
		Method:   "card",
		Provider: entity.ProviderManual,
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "300.00", entity.FormatAmount(payment.Amount))
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
}

func TestBookingAccount_rejects_currency_mismatch(t *testing.T) {
	account := newAccount(t, "300.00")

	_, err := account.PreparePayment(entity.NewPaymentParams{
		Currency: "EUR",
		Method:   "card",
		Provider: entity.ProviderManual,
	}, time.Now())

	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestBookingAccount_rejects_payment_on_cancelled_booking(t *testing.T) {
	account := newAccount(t, "300.00")
	require.NoError(t, account.Cancel("changed plans", time.Now()))

	_, err := account.PreparePayment(entity.NewPaymentParams{
		Currency: "USD",
		Method:   "card",
		Provider: entity.ProviderManual,
	}, time.Now())

	assert.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestBookingAccount_cancel_twice(t *testing.T) {
	account := newAccount(t, "300.00")

	require.NoError(t, account.Cancel("changed plans", time.Now()))
	assert.ErrorIs(t, account.Cancel("changed plans", time.Now()), entity.ErrInvalidState)
}

func TestBookingAccount_status_update_is_idempotent(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")

	txID := "ch_1"
	update := entity.PaymentStatusUpdate{Status: entity.PaymentStatusCompleted, TransactionID: &txID}

	require.NoError(t, account.SetPaymentStatus(payment.PaymentID, update, time.Now()))
	account.Reconcile(time.Now())
	eventsAfterFirst := len(account.Events())

	require.NoError(t, account.SetPaymentStatus(payment.PaymentID, update, time.Now()))
	account.Reconcile(time.Now())

	assert.Len(t, account.Events(), eventsAfterFirst)
	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)
}

func TestBookingAccount_completed_never_reverts(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")
	complete(t, account, payment.PaymentID)

	for _, status := range []entity.PaymentStatus{entity.PaymentStatusPending, entity.PaymentStatusProcessing, entity.PaymentStatusFailed} {
		err := account.SetPaymentStatus(payment.PaymentID, entity.PaymentStatusUpdate{Status: status}, time.Now())
		assert.ErrorIs(t, err, entity.ErrInvalidState, status)
	}
}

func TestBookingAccount_refund_validation(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")

	_, err := account.RefundAmount(payment.PaymentID, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidState, "pending payment is not refundable")

	complete(t, account, payment.PaymentID)

	zero := decimal.Zero
	_, err = account.RefundAmount(payment.PaymentID, &zero)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	tooMuch := decimal.RequireFromString("300.01")
	_, err = account.RefundAmount(payment.PaymentID, &tooMuch)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	remaining, err := account.RefundAmount(payment.PaymentID, nil)
	require.NoError(t, err)
	assert.Equal(t, "300.00", entity.FormatAmount(remaining))
}

func TestBookingAccount_refund_keeps_booking_while_other_payment_is_live(t *testing.T) {
	account := newAccount(t, "300.00")
	first := addPayment(t, account, "100.00")
	second := addPayment(t, account, "200.00")
	complete(t, account, first.PaymentID)
	complete(t, account, second.PaymentID)

	refund(t, account, first.PaymentID, "100.00")

	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)

	refund(t, account, second.PaymentID, "200.00")

	assert.Equal(t, entity.BookingStatusCancelled, account.Booking.Status)
}

func TestBookingAccount_admin_refunded_status_records_refund(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")
	complete(t, account, payment.PaymentID)

	err := account.SetPaymentStatus(payment.PaymentID, entity.PaymentStatusUpdate{
		Status: entity.PaymentStatusRefunded,
		Actor:  "admin-1",
	}, time.Now())
	require.NoError(t, err)
	account.Reconcile(time.Now())

	p, err := account.Payment(payment.PaymentID)
	require.NoError(t, err)
	require.Len(t, p.Refunds, 1)
	assert.Equal(t, "300.00", entity.FormatAmount(p.Refunds[0].Amount))
	assert.Equal(t, entity.BookingStatusCancelled, account.Booking.Status)
}

func TestBookingAccount_sync_provider_refunds(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")
	complete(t, account, payment.PaymentID)

	providerRefund := entity.RefundRecord{
		RefundID: "re_provider",
		Amount:   decimal.RequireFromString("300.00"),
		Actor:    entity.ProviderStripe,
		Status:   entity.RefundStatusSucceeded,
	}

	for i := 0; i < 2; i++ {
		err := account.SyncProviderRefunds(payment.PaymentID, entity.ProviderRefundSync{
			ChargeID:       "ch_1",
			AmountRefunded: decimal.RequireFromString("300.00"),
			Refunds:        []entity.RefundRecord{providerRefund},
			Actor:          entity.ProviderStripe,
		}, time.Now())
		require.NoError(t, err)
		account.Reconcile(time.Now())
	}

	p, err := account.Payment(payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	assert.Len(t, p.Refunds, 1)
	assert.Equal(t, entity.BookingStatusCancelled, account.Booking.Status)
}

func TestBookingAccount_sync_provider_refunds_without_refund_list(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")
	complete(t, account, payment.PaymentID)

	for i := 0; i < 2; i++ {
		err := account.SyncProviderRefunds(payment.PaymentID, entity.ProviderRefundSync{
			ChargeID:       "ch_1",
			AmountRefunded: decimal.RequireFromString("100.00"),
			Actor:          "evt_1",
		}, time.Now())
		require.NoError(t, err)
		account.Reconcile(time.Now())
	}

	p, err := account.Payment(payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, p.Status)
	require.Len(t, p.Refunds, 1)
	assert.Equal(t, "100.00", entity.FormatAmount(p.RefundedAmount()))
	assert.Equal(t, "200.00", entity.FormatAmount(p.RefundableAmount()))
	assert.Equal(t, "100.00", entity.FormatAmount(account.Summary().TotalRefunded))

	amount, err := account.RefundAmount(payment.PaymentID, nil)
	require.NoError(t, err)
	assert.Equal(t, "200.00", entity.FormatAmount(amount))

	refund(t, account, payment.PaymentID, "200.00")

	p, err = account.Payment(payment.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusRefunded, p.Status)
	assert.Equal(t, entity.BookingStatusCancelled, account.Booking.Status)

	refundEvents := 0
	for _, event := range account.Events() {
		if e, ok := event.(entity.PaymentRefunded_v1); ok {
			refundEvents++
			assert.NotEqual(t, "provider", e.Header.IdempotencyKey)
		}
	}
	assert.Equal(t, 2, refundEvents)
}

func TestBookingAccount_partially_refunded_deposit_counts_towards_total(t *testing.T) {
	account := newAccount(t, "300.00")

	deposit := addPayment(t, account, "100.00")
	complete(t, account, deposit.PaymentID)
	refund(t, account, deposit.PaymentID, "10.00")

	balance := addPayment(t, account, "200.00")
	complete(t, account, balance.PaymentID)

	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)
	summary := account.Summary()
	assert.Equal(t, "300.00", entity.FormatAmount(summary.TotalPaid))
	assert.Equal(t, "0.00", entity.FormatAmount(summary.BalanceDue))
	assert.Equal(t, "10.00", entity.FormatAmount(summary.TotalRefunded))

	_, err := account.PreparePayment(entity.NewPaymentParams{
		BookingID: account.Booking.BookingID,
		Currency:  "USD",
		Method:    "card",
		Provider:  entity.ProviderManual,
	}, time.Now())
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)
}

func TestBookingAccount_failed_payment_has_no_booking_effect(t *testing.T) {
	account := newAccount(t, "300.00")
	payment := addPayment(t, account, "300.00")

	err := account.SetPaymentStatus(payment.PaymentID, entity.PaymentStatusUpdate{Status: entity.PaymentStatusFailed}, time.Now())
	require.NoError(t, err)
	account.Reconcile(time.Now())

	assert.Equal(t, entity.BookingStatusPending, account.Booking.Status)
	assert.Equal(t, entity.PaymentSummaryFailed, account.Summary().Status)
}

func TestBookingAccount_Summary(t *testing.T) {
	t.Run("unpaid", func(t *testing.T) {
		account := newAccount(t, "300.00")
		assert.Equal(t, entity.PaymentSummaryUnpaid, account.Summary().Status)
	})

	t.Run("pending", func(t *testing.T) {
		account := newAccount(t, "300.00")
		addPayment(t, account, "300.00")
		assert.Equal(t, entity.PaymentSummaryPending, account.Summary().Status)
	})

	t.Run("refunded_after_full_payment", func(t *testing.T) {
		account := newAccount(t, "300.00")
		payment := addPayment(t, account, "300.00")
		complete(t, account, payment.PaymentID)
		refund(t, account, payment.PaymentID, "50.00")

		summary := account.Summary()
		assert.Equal(t, entity.PaymentSummaryRefunded, summary.Status)
		assert.Equal(t, "50.00", entity.FormatAmount(summary.TotalRefunded))
	})
}
