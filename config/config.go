package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr    string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"address of the HTTP server"`
	PostgresURL string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address used for the event streams"`

	StripeSecretKey     string `long:"stripe-secret-key" env:"STRIPE_SECRET_KEY" description:"Stripe secret API key"`
	StripeWebhookSecret string `long:"stripe-webhook-secret" env:"STRIPE_WEBHOOK_SECRET" description:"secret used to verify Stripe webhook signatures"`
	StripeAPIURL        string `long:"stripe-api-url" env:"STRIPE_API_URL" description:"overrides the Stripe API base URL"`

	JWTSecret string   `long:"jwt-secret" env:"JWT_SECRET" required:"true" description:"HMAC secret of bearer tokens"`
	AdminIDs  []string `long:"admin-id" env:"ADMIN_IDS" env-delim:"," description:"user ids granted the admin role at startup"`

	JaegerEndpoint string        `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint; tracing is not exported when empty"`
	GatewayTimeout time.Duration `long:"gateway-timeout" env:"GATEWAY_TIMEOUT" default:"10s" description:"timeout of a single payment provider call"`
	LogLevel       string        `long:"log-level" env:"LOG_LEVEL" default:"info" description:"logrus level"`
}

// Load reads the configuration from command line arguments and the environment.
func Load(args []string) (Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}

	return cfg, nil
}

func (c Config) LogrusLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
