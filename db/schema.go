package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"travel/pubsub/outbox"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		activity_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS packages (
		package_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		base_price NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS package_activities (
		package_id VARCHAR(255) NOT NULL REFERENCES packages (package_id),
		activity_id VARCHAR(255) NOT NULL REFERENCES activities (activity_id),
		PRIMARY KEY (package_id, activity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		booking_id VARCHAR(255) PRIMARY KEY,
		customer_id VARCHAR(255) NOT NULL,
		package_id VARCHAR(255) NULL,
		status VARCHAR(32) NOT NULL,
		total_price NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		notes TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS booking_line_items (
		line_item_id VARCHAR(255) PRIMARY KEY,
		booking_id VARCHAR(255) NOT NULL REFERENCES bookings (booking_id),
		activity_id VARCHAR(255) NOT NULL,
		guide_id VARCHAR(255) NULL,
		price_at_booking NUMERIC(12, 2) NOT NULL,
		scheduled_at TIMESTAMPTZ NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id VARCHAR(255) PRIMARY KEY,
		booking_id VARCHAR(255) NOT NULL REFERENCES bookings (booking_id),
		amount NUMERIC(12, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		method VARCHAR(64) NOT NULL,
		status VARCHAR(32) NOT NULL,
		transaction_id VARCHAR(255) NULL,
		intent_id VARCHAR(255) NULL UNIQUE,
		provider VARCHAR(64) NOT NULL,
		refunds JSONB NOT NULL DEFAULT '[]',
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payments_booking_id_idx ON payments (booking_id)`,
	`CREATE INDEX IF NOT EXISTS payments_transaction_id_idx ON payments (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS admins (
		user_id VARCHAR(255) PRIMARY KEY,
		granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		provider VARCHAR(64) NOT NULL,
		event_id VARCHAR(255) NOT NULL,
		event_type VARCHAR(255) NOT NULL,
		received_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ NULL,
		outcome VARCHAR(64) NULL,
		PRIMARY KEY (provider, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_id UUID PRIMARY KEY,
		published_at TIMESTAMPTZ NOT NULL,
		event_name VARCHAR(255) NOT NULL,
		event_payload JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS read_model_ops_bookings (
		booking_id VARCHAR(255) PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
}

func InitializeDatabaseSchema(db *sqlx.DB) error {
	for _, query := range schema {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("could not initialize database schema: %w", err)
		}
	}

	return outbox.InitializeSchema(context.Background(), db)
}
