package webhook_events_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/db"
	"travel/db/webhook_events"
)

func TestMain(m *testing.M) {
	os.Exit(db.RunWithPostgresContainer(m))
}

func TestPostgresRepository(t *testing.T) {
	ctx := context.Background()
	repo := webhook_events.NewPostgresRepository(db.GetDb(t))

	eventID := "evt_" + uuid.NewString()

	processed, err := repo.Register(ctx, "stripe", eventID, "payment_intent.succeeded")
	require.NoError(t, err)
	assert.False(t, processed)

	// redelivered before processing finished
	processed, err = repo.Register(ctx, "stripe", eventID, "payment_intent.succeeded")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, repo.MarkProcessed(ctx, "stripe", eventID, "applied"))

	processed, err = repo.Register(ctx, "stripe", eventID, "payment_intent.succeeded")
	require.NoError(t, err)
	assert.True(t, processed)
}
