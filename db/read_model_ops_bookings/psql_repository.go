package read_model_ops_bookings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"travel/db"
	"travel/entity"
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

func (r PostgresRepository) FindAll(ctx context.Context, status string) ([]entity.OpsBooking, error) {
	query := `SELECT payload FROM read_model_ops_bookings`
	var args []any

	if status != "" {
		query += ` WHERE payload->>'status' = $1`
		args = append(args, status)
	}
	query += ` ORDER BY payload->>'booked_at' DESC`

	var bookingsData [][]byte
	err := r.db.SelectContext(ctx, &bookingsData, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not get booking read models: %w", err)
	}

	bookings := make([]entity.OpsBooking, 0, len(bookingsData))
	for _, bookingData := range bookingsData {
		booking, err := unmarshalReadModel(bookingData)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r PostgresRepository) Get(ctx context.Context, bookingID string) (entity.OpsBooking, error) {
	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT payload
		FROM read_model_ops_bookings
		WHERE booking_id = $1
		`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.OpsBooking{}, fmt.Errorf("booking read model %s: %w", bookingID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.OpsBooking{}, fmt.Errorf("could not get booking read model: %w", err)
	}

	return unmarshalReadModel(payload)
}

// Store stores booking in database. Idempotent. On conflict do nothing.
func (r PostgresRepository) Store(ctx context.Context, booking entity.OpsBooking) error {
	booking.LastUpdate = time.Now()

	payload, err := json.Marshal(booking)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO
		    read_model_ops_bookings (booking_id, payload)
		VALUES (:booking_id, :payload)
		ON CONFLICT (booking_id) DO NOTHING
		`, map[string]interface{}{
		"booking_id": booking.BookingID,
		"payload":    payload,
	})
	if err != nil {
		return fmt.Errorf("could not add booking read model: %w", err)
	}
	return nil
}

func (r PostgresRepository) UpdateByBookingID(ctx context.Context, bookingID string, update func(booking *entity.OpsBooking) error) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelRepeatableRead, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err := r.getForUpdate(ctx, tx, bookingID)
		if errors.Is(err, sql.ErrNoRows) {
			// events arrived out of order; retried until BookingCreated_v1 is projected
			return fmt.Errorf("read model for booking %s does not exist yet", bookingID)
		}
		if err != nil {
			return err
		}

		if err = update(&booking); err != nil {
			return err
		}
		booking.LastUpdate = time.Now()

		payload, err := json.Marshal(booking)
		if err != nil {
			return err
		}

		_, err = tx.NamedExecContext(ctx, `
			UPDATE read_model_ops_bookings
			SET payload = :payload
			WHERE booking_id = :booking_id
			`, map[string]interface{}{
			"booking_id": bookingID,
			"payload":    payload,
		})
		if err != nil {
			return fmt.Errorf("could not update booking read model: %w", err)
		}

		return nil
	})
}

func (r PostgresRepository) getForUpdate(ctx context.Context, tx *sqlx.Tx, bookingID string) (entity.OpsBooking, error) {
	var payload []byte
	err := tx.GetContext(ctx, &payload, `
		SELECT payload
		FROM read_model_ops_bookings
		WHERE booking_id = $1
		FOR UPDATE
		`, bookingID)
	if err != nil {
		return entity.OpsBooking{}, err
	}

	return unmarshalReadModel(payload)
}

func unmarshalReadModel(payload []byte) (entity.OpsBooking, error) {
	var booking entity.OpsBooking
	if err := json.Unmarshal(payload, &booking); err != nil {
		return entity.OpsBooking{}, fmt.Errorf("could not unmarshal booking read model: %w", err)
	}

	if booking.Payments == nil {
		booking.Payments = map[string]entity.OpsPayment{}
	}

	return booking, nil
}
