package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"travel/db"
	"travel/entity"
	"travel/pubsub/bus"
	"travel/pubsub/outbox"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

const bookingColumns = `booking_id, customer_id, package_id, status, total_price, currency,
	start_date, end_date, notes, created_at, updated_at`

const paymentColumns = `payment_id, booking_id, amount, currency, method, status, transaction_id,
	intent_id, provider, refunds, metadata, created_at, updated_at`

// Create stores the booking with its line items and publishes BookingCreated_v1 in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, booking entity.Booking) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES (:booking_id, :customer_id, :package_id, :status, :total_price, :currency,
				:start_date, :end_date, :notes, :created_at, :updated_at)
		`, booking)
		if err != nil {
			if db.IsErrorUniqueViolation(err) {
				return fmt.Errorf("booking %s already exists: %w", booking.BookingID, entity.ErrConflict)
			}
			return fmt.Errorf("could not add booking: %w", err)
		}

		for _, item := range booking.LineItems {
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO booking_line_items (line_item_id, booking_id, activity_id, guide_id, price_at_booking, scheduled_at)
				VALUES (:line_item_id, :booking_id, :activity_id, :guide_id, :price_at_booking, :scheduled_at)
			`, item)
			if err != nil {
				return fmt.Errorf("could not add line item %s: %w", item.LineItemID, err)
			}
		}

		return publishEvents(ctx, tx, entity.BookingCreated_v1{
			Header:     entity.NewEventHeaderWithIdempotencyKey(booking.BookingID),
			BookingID:  booking.BookingID,
			CustomerID: booking.CustomerID,
			PackageID:  booking.PackageID,
			TotalPrice: entity.NewMoney(booking.TotalPrice, booking.Currency),
			StartDate:  booking.StartDate,
			EndDate:    booking.EndDate,
			Activities: len(booking.LineItems),
		})
	})
}

func (r *PostgresRepository) Get(ctx context.Context, bookingID string) (entity.Booking, error) {
	return getBooking(ctx, r.db, bookingID, false)
}

// Account loads the booking with its payments without locking. Use UpdateAccount to change it.
func (r *PostgresRepository) Account(ctx context.Context, bookingID string) (*entity.BookingAccount, error) {
	booking, err := getBooking(ctx, r.db, bookingID, false)
	if err != nil {
		return nil, err
	}

	payments, err := paymentsByBookingID(ctx, r.db, bookingID)
	if err != nil {
		return nil, err
	}

	return entity.NewBookingAccount(booking, payments), nil
}

// UpdateAccount locks the booking row, loads its payments and calls updateFn. Changes made by
// updateFn are persisted together with the events it recorded. Calls for the same booking are
// serialized; an error from updateFn rolls everything back.
func (r *PostgresRepository) UpdateAccount(
	ctx context.Context,
	bookingID string,
	updateFn func(ctx context.Context, account *entity.BookingAccount) error,
) (*entity.BookingAccount, error) {
	var account *entity.BookingAccount

	err := db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err := getBooking(ctx, tx, bookingID, true)
		if err != nil {
			return err
		}

		payments, err := paymentsByBookingID(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		original := make(map[string]time.Time, len(payments))
		for _, p := range payments {
			original[p.PaymentID] = p.UpdatedAt
		}
		bookingUpdatedAt := booking.UpdatedAt

		account = entity.NewBookingAccount(booking, payments)
		if err := updateFn(ctx, account); err != nil {
			return err
		}

		if !account.Booking.UpdatedAt.Equal(bookingUpdatedAt) {
			if err := updateBooking(ctx, tx, account.Booking); err != nil {
				return err
			}
		}

		for _, p := range account.Payments {
			updatedAt, ok := original[p.PaymentID]
			if ok && updatedAt.Equal(p.UpdatedAt) {
				continue
			}
			if err := upsertPayment(ctx, tx, p); err != nil {
				return err
			}
		}

		return publishEvents(ctx, tx, account.Events()...)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *PostgresRepository) GetPayment(ctx context.Context, paymentID string) (entity.Payment, error) {
	return getPayment(ctx, r.db, "payment_id", paymentID)
}

func (r *PostgresRepository) PaymentByIntentID(ctx context.Context, intentID string) (entity.Payment, error) {
	return getPayment(ctx, r.db, "intent_id", intentID)
}

func (r *PostgresRepository) PaymentByTransactionID(ctx context.Context, transactionID string) (entity.Payment, error) {
	return getPayment(ctx, r.db, "transaction_id", transactionID)
}

func getBooking(ctx context.Context, ex db.Executor, bookingID string, forUpdate bool) (entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var booking entity.Booking
	err := ex.GetContext(ctx, &booking, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Booking{}, fmt.Errorf("booking %s: %w", bookingID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not get booking: %w", err)
	}

	err = ex.SelectContext(ctx, &booking.LineItems, `
		SELECT line_item_id, booking_id, activity_id, guide_id, price_at_booking, scheduled_at
		FROM booking_line_items
		WHERE booking_id = $1
		ORDER BY line_item_id
	`, bookingID)
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not get booking line items: %w", err)
	}

	return booking, nil
}

func updateBooking(ctx context.Context, tx *sqlx.Tx, booking entity.Booking) error {
	// line items and total price are never updated
	_, err := tx.NamedExecContext(ctx, `
		UPDATE bookings SET
			status = :status,
			start_date = :start_date,
			end_date = :end_date,
			notes = :notes,
			updated_at = :updated_at
		WHERE booking_id = :booking_id
	`, booking)
	if err != nil {
		return fmt.Errorf("could not update booking %s: %w", booking.BookingID, err)
	}

	return nil
}

func paymentsByBookingID(ctx context.Context, ex db.Executor, bookingID string) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := ex.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at, payment_id
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("could not get payments of booking %s: %w", bookingID, err)
	}

	return payments, nil
}

func getPayment(ctx context.Context, ex db.Executor, column string, value string) (entity.Payment, error) {
	var payment entity.Payment
	err := ex.GetContext(ctx, &payment, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE `+column+` = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Payment{}, fmt.Errorf("payment with %s %s: %w", column, value, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Payment{}, fmt.Errorf("could not get payment: %w", err)
	}

	return payment, nil
}

func upsertPayment(ctx context.Context, tx *sqlx.Tx, payment entity.Payment) error {
	// amount, currency and booking never change once written
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (:payment_id, :booking_id, :amount, :currency, :method, :status, :transaction_id,
			:intent_id, :provider, :refunds, :metadata, :created_at, :updated_at)
		ON CONFLICT (payment_id) DO UPDATE SET
			status = excluded.status,
			transaction_id = excluded.transaction_id,
			intent_id = excluded.intent_id,
			refunds = excluded.refunds,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, payment)
	if err != nil {
		if db.IsErrorUniqueViolation(err) {
			return fmt.Errorf("payment intent already linked to another payment: %w", entity.ErrConflict)
		}
		return fmt.Errorf("could not store payment %s: %w", payment.PaymentID, err)
	}

	return nil
}

func publishEvents(ctx context.Context, tx *sqlx.Tx, events ...any) error {
	if len(events) == 0 {
		return nil
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	for _, event := range events {
		if err := eventBus.Publish(ctx, event); err != nil {
			return fmt.Errorf("could not publish event: %w", err)
		}
	}

	return nil
}
