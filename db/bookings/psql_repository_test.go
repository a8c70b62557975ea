package bookings_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/db"
	"travel/db/bookings"
	"travel/db/catalog"
	"travel/entity"
)

func TestMain(m *testing.M) {
	os.Exit(db.RunWithPostgresContainer(m))
}

func newBooking(t *testing.T, total string) entity.Booking {
	t.Helper()

	start := time.Now().UTC().Truncate(time.Second).Add(24 * time.Hour)
	booking, err := entity.NewBooking(entity.NewBookingParams{
		CustomerID: uuid.NewString(),
		Items:      []entity.LineItemRequest{{ActivityID: "kayak"}},
		StartDate:  start,
		EndDate:    start.Add(48 * time.Hour),
	}, entity.PriceSnapshot{
		Total:          decimal.RequireFromString(total),
		Currency:       "USD",
		ActivityPrices: map[string]decimal.Decimal{"kayak": decimal.RequireFromString(total)},
	}, time.Now().UTC())
	require.NoError(t, err)

	return booking
}

func TestPostgresRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	booking := newBooking(t, "300.00")
	require.NoError(t, repo.Create(ctx, booking))

	stored, err := repo.Get(ctx, booking.BookingID)
	require.NoError(t, err)

	assert.Equal(t, booking.CustomerID, stored.CustomerID)
	assert.Equal(t, entity.BookingStatusPending, stored.Status)
	assert.True(t, booking.TotalPrice.Equal(stored.TotalPrice))
	require.Len(t, stored.LineItems, 1)
	assert.Equal(t, "300.00", entity.FormatAmount(stored.LineItems[0].PriceAtBooking))

	err = repo.Create(ctx, booking)
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestPostgresRepository_price_at_booking_survives_catalog_change(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))
	catalogRepo := catalog.NewPostgresRepository(db.GetDb(t))

	activity := entity.Activity{
		ActivityID: uuid.NewString(),
		Name:       "Glacier walk",
		Price:      decimal.RequireFromString("150.00"),
		Currency:   "USD",
	}
	require.NoError(t, catalogRepo.StoreActivity(ctx, activity))

	activities, err := catalogRepo.ActivitiesByIDs(ctx, []string{activity.ActivityID})
	require.NoError(t, err)
	snapshot, err := entity.CalculatePriceSnapshot([]string{activity.ActivityID, activity.ActivityID}, activities, nil)
	require.NoError(t, err)

	start := time.Now().UTC().Truncate(time.Second).Add(24 * time.Hour)
	booking, err := entity.NewBooking(entity.NewBookingParams{
		CustomerID: uuid.NewString(),
		Items:      []entity.LineItemRequest{{ActivityID: activity.ActivityID}, {ActivityID: activity.ActivityID}},
		StartDate:  start,
		EndDate:    start.Add(24 * time.Hour),
	}, snapshot, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, booking))

	activity.Price = decimal.RequireFromString("199.00")
	require.NoError(t, catalogRepo.StoreActivity(ctx, activity))

	// touch the account so the booking row is written again
	_, err = repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		notes := "late arrival"
		return account.Booking.Apply(entity.BookingUpdate{Notes: &notes}, time.Now().UTC())
	})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, booking.BookingID)
	require.NoError(t, err)

	assert.Equal(t, "300.00", entity.FormatAmount(stored.TotalPrice))
	require.Len(t, stored.LineItems, 2)
	for _, item := range stored.LineItems {
		assert.Equal(t, "150.00", entity.FormatAmount(item.PriceAtBooking))
	}

	current, err := catalogRepo.ActivitiesByIDs(ctx, []string{activity.ActivityID})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "199.00", entity.FormatAmount(current[0].Price))
}

func TestPostgresRepository_Get_not_found(t *testing.T) {
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPostgresRepository_UpdateAccount(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	booking := newBooking(t, "300.00")
	require.NoError(t, repo.Create(ctx, booking))

	intentID := "pi_" + uuid.NewString()
	var paymentID string

	_, err := repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		payment, err := account.PreparePayment(entity.NewPaymentParams{
			BookingID: booking.BookingID,
			Currency:  "USD",
			Method:    "card",
			Provider:  entity.ProviderStripe,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		payment.IntentID = &intentID
		paymentID = payment.PaymentID

		account.AddPayment(payment)
		return nil
	})
	require.NoError(t, err)

	byIntent, err := repo.PaymentByIntentID(ctx, intentID)
	require.NoError(t, err)
	assert.Equal(t, paymentID, byIntent.PaymentID)
	assert.Equal(t, entity.PaymentStatusPending, byIntent.Status)

	transactionID := "ch_" + uuid.NewString()
	account, err := repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		err := account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{
			Status:        entity.PaymentStatusCompleted,
			TransactionID: &transactionID,
			Metadata:      map[string]string{"source": "test"},
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		account.Reconcile(time.Now().UTC())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, account.Booking.Status)

	stored, err := repo.Get(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)

	byTransaction, err := repo.PaymentByTransactionID(ctx, transactionID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, byTransaction.Status)
	assert.Equal(t, "test", byTransaction.Metadata["source"])
}

func TestPostgresRepository_UpdateAccount_rolls_back_on_error(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	booking := newBooking(t, "300.00")
	require.NoError(t, repo.Create(ctx, booking))

	_, err := repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		payment, err := account.PreparePayment(entity.NewPaymentParams{
			Currency: "USD",
			Method:   "card",
			Provider: entity.ProviderManual,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		account.AddPayment(payment)

		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	account, err := repo.Account(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Empty(t, account.Payments)
}

func TestPostgresRepository_UpdateAccount_serializes_payment_creation(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	booking := newBooking(t, "300.00")
	require.NoError(t, repo.Create(ctx, booking))

	// each payment completes immediately, so only one of them fits into the total
	workers := 5
	errs := make([]error, workers)

	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			amount := decimal.RequireFromString("200.00")
			_, errs[i] = repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
				payment, err := account.PreparePayment(entity.NewPaymentParams{
					Amount:   &amount,
					Currency: "USD",
					Method:   "cash",
					Provider: entity.ProviderManual,
				}, time.Now().UTC())
				if err != nil {
					return err
				}
				account.AddPayment(payment)

				return account.SetPaymentStatus(payment.PaymentID, entity.PaymentStatusUpdate{
					Status: entity.PaymentStatusCompleted,
				}, time.Now().UTC())
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, entity.ErrInvalidAmount)
	}
	assert.Equal(t, 1, succeeded)

	account, err := repo.Account(ctx, booking.BookingID)
	require.NoError(t, err)
	assert.Len(t, account.Payments, 1)
	assert.Equal(t, "200.00", entity.FormatAmount(account.TotalPaid()))
}

func TestPostgresRepository_refund_history_round_trip(t *testing.T) {
	ctx := context.Background()
	repo := bookings.NewPostgresRepository(db.GetDb(t))

	booking := newBooking(t, "300.00")
	require.NoError(t, repo.Create(ctx, booking))

	var paymentID string
	_, err := repo.UpdateAccount(ctx, booking.BookingID, func(ctx context.Context, account *entity.BookingAccount) error {
		payment, err := account.PreparePayment(entity.NewPaymentParams{
			Currency: "USD",
			Method:   "cash",
			Provider: entity.ProviderManual,
		}, time.Now().UTC())
		if err != nil {
			return err
		}
		paymentID = payment.PaymentID
		account.AddPayment(payment)

		if err := account.SetPaymentStatus(paymentID, entity.PaymentStatusUpdate{Status: entity.PaymentStatusCompleted}, time.Now().UTC()); err != nil {
			return err
		}

		return account.RecordRefund(paymentID, entity.RefundRecord{
			RefundID:  "re_" + uuid.NewString(),
			Amount:    decimal.RequireFromString("100.00"),
			Reason:    "weather",
			Actor:     "admin-1",
			Status:    entity.RefundStatusSucceeded,
			CreatedAt: time.Now().UTC(),
		}, time.Now().UTC())
	})
	require.NoError(t, err)

	payment, err := repo.GetPayment(ctx, paymentID)
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusPartiallyRefunded, payment.Status)
	require.Len(t, payment.Refunds, 1)
	assert.Equal(t, "weather", payment.Refunds[0].Reason)
	assert.Equal(t, "100.00", entity.FormatAmount(payment.RefundedAmount()))
}
