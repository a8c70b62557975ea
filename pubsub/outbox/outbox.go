package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"

	"travel/tracing"
)

const outboxTopic = "events_to_forward"

// NewPublisherForDb returns a publisher writing messages into the outbox table within tx.
// Messages become visible to the forwarder only once tx is committed.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	var publisher message.Publisher

	logger := log.NewWatermill(log.FromContext(ctx))

	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	publisher = tracing.PublisherDecorator{Publisher: publisher}
	publisher = forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
		ForwarderTopic: outboxTopic,
	})

	return publisher, nil
}

func NewPostgresSubscriber(db *sql.DB, logger watermill.LoggerAdapter) message.Subscriber {
	sub, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		logger,
	)
	if err != nil {
		panic(fmt.Errorf("could not create outbox subscriber: %w", err))
	}

	return sub
}

// AddForwarderHandler registers the handler moving committed outbox messages to publisher.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) {
	_, err := forwarder.NewForwarder(
		postgresSubscriber,
		publisher,
		logger,
		forwarder.Config{
			ForwarderTopic: outboxTopic,
			Router:         router,
		},
	)
	if err != nil {
		panic(fmt.Errorf("could not create forwarder: %w", err))
	}
}

// InitializeSchema creates the outbox table, so transactions can publish before the forwarder
// subscribes for the first time.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	for _, query := range (watermillSQL.DefaultPostgreSQLSchema{}).SchemaInitializingQueries(outboxTopic) {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("could not initialize outbox schema: %w", err)
		}
	}

	return nil
}
