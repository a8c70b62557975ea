package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"travel/auth"
	"travel/config"
	dbLib "travel/db"
	"travel/db/admins"
	"travel/db/bookings"
	"travel/db/catalog"
	"travel/db/data_lake"
	"travel/db/read_model_ops_bookings"
	"travel/db/webhook_events"
	"travel/entity"
	"travel/http"
	"travel/ledger"
	migrations "travel/migration"
	"travel/pubsub"
	"travel/pubsub/outbox"
	"travel/pubsub/read_models_handlers"
	"travel/webhook"
)

type App struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
	opsReadModel    read_models_handlers.OpsBookingReadModel
	dataLake        data_lake.DataLake
	authorization   *admins.AuthorizationChecker
	adminIDs        []string
	traceProvider   *tracesdk.TracerProvider
}

// New wires the application. stripeGateway serves both payment intents and webhook verification
// of the stripe provider.
func New(
	cfg config.Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	stripeGateway entity.PaymentGateway,
	traceProvider *tracesdk.TracerProvider,
) App {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)
	newRedisSubscriber := func(consumerGroup string) message.Subscriber {
		return pubsub.NewRedisSubscriber(redisClient, consumerGroup, watermillLogger)
	}

	bookingsRepo := bookings.NewPostgresRepository(db)
	catalogRepo := catalog.NewPostgresRepository(db)
	authorization := admins.NewAuthorizationChecker(db)
	webhookEventsRepo := webhook_events.NewPostgresRepository(db)
	opsBookingsRepo := read_model_ops_bookings.NewPostgresRepository(db)
	dataLake := data_lake.NewDataLake(db)

	ledgerService := ledger.NewService(
		bookingsRepo,
		catalogRepo,
		authorization,
		map[string]entity.PaymentGateway{
			entity.ProviderStripe: stripeGateway,
		},
		cfg.GatewayTimeout,
	)
	stripeWebhooks := webhook.NewProcessor(entity.ProviderStripe, stripeGateway, bookingsRepo, webhookEventsRepo)

	opsReadModel := read_models_handlers.NewOpsBookingReadModel(opsBookingsRepo)

	postgresSubscriber := outbox.NewPostgresSubscriber(db.DB, watermillLogger)
	eventProcessorConfig := pubsub.NewEventProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		newRedisSubscriber,
		eventProcessorConfig,
		opsReadModel,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(
		cfg.HTTPAddr,
		ledgerService,
		stripeWebhooks,
		opsBookingsRepo,
		authorization,
		auth.NewTokens(cfg.JWTSecret),
	)

	return App{
		db:              db,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
		opsReadModel:    opsReadModel,
		dataLake:        dataLake,
		authorization:   authorization,
		adminIDs:        cfg.AdminIDs,
		traceProvider:   traceProvider,
	}
}

func (s App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if len(s.adminIDs) > 0 {
		if err := s.authorization.Grant(ctx, s.adminIDs...); err != nil {
			return fmt.Errorf("failed to grant admin role: %w", err)
		}
		log.FromContext(ctx).WithField("admins", s.adminIDs).Info("Admin role granted")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := migrations.MigrateReadModel(ctx, s.dataLake, s.opsReadModel)
		if err != nil {
			log.FromContext(ctx).Errorf("failed to migrate read model: %s", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.traceProvider.Shutdown(context.Background())
	})

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the app is not healthy before the router is ready
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
