package pubsub

import (
	"context"
	"os"
	"strings"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

func StartRedisContainer() (testcontainers.Container, string) {
	ctx := context.Background()
	redisContainer, err := redis.RunContainer(ctx,
		testcontainers.WithImage("docker.io/redis:7"),
		redis.WithSnapshotting(10, 1),
		redis.WithLogLevel(redis.LogLevelVerbose),
	)
	if err != nil {
		panic(err)
	}

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		panic(err)
	}

	return redisContainer, strings.Replace(uri, "redis://", "", 1)
}

// RunWithRedisContainer runs the tests against a fresh Redis container, or against REDIS_ADDR
// when it is already set.
func RunWithRedisContainer(m interface{ Run() int }) int {
	if os.Getenv("REDIS_ADDR") != "" {
		return m.Run()
	}

	container, addr := StartRedisContainer()
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	if err := os.Setenv("REDIS_ADDR", addr); err != nil {
		panic(err)
	}

	return m.Run()
}
