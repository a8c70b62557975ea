package webhook_events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresRepository is the journal of received provider webhook events.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &PostgresRepository{db: db}
}

// Register records the event as received. It reports whether the event was already processed.
func (r *PostgresRepository) Register(ctx context.Context, provider, eventID, eventType string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (provider, event_id, event_type, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, provider, eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("could not register webhook event %s: %w", eventID, err)
	}

	var processedAt sql.NullTime
	err = r.db.GetContext(ctx, &processedAt, `
		SELECT processed_at
		FROM webhook_events
		WHERE provider = $1 AND event_id = $2
	`, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("could not get webhook event %s: %w", eventID, err)
	}

	return processedAt.Valid, nil
}

func (r *PostgresRepository) MarkProcessed(ctx context.Context, provider, eventID, outcome string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events
		SET processed_at = $3, outcome = $4
		WHERE provider = $1 AND event_id = $2
	`, provider, eventID, time.Now().UTC(), outcome)
	if err != nil {
		return fmt.Errorf("could not mark webhook event %s as processed: %w", eventID, err)
	}

	return nil
}
