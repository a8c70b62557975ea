package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"

	"travel/app"
	"travel/config"
	"travel/gateway"
	"travel/pubsub"
	"travel/tracing"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	log.Init(cfg.LogrusLevel())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	traceProvider, err := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		panic(err)
	}

	traceDB, err := otelsql.Open("postgres", cfg.PostgresURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName("travel"),
	)
	if err != nil {
		panic(err)
	}

	db := sqlx.NewDb(traceDB, "postgres")
	defer db.Close()

	redisClient := pubsub.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	stripeGateway := gateway.NewStripeGateway(gateway.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
	})

	err = app.New(
		cfg,
		db,
		redisClient,
		stripeGateway,
		traceProvider,
	).Run(ctx)
	if err != nil {
		panic(err)
	}
}
