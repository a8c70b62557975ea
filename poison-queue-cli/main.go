package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"travel/pubsub"
)

func newPoisonQueue(c *cli.Context) pubsub.PoisonQueue {
	rdb := pubsub.NewRedisClient(c.String("redis-addr"))
	return pubsub.NewPoisonQueue(rdb, log.NewWatermill(log.FromContext(c.Context)))
}

func main() {
	log.Init(logrus.WarnLevel)

	app := &cli.App{
		Name:  "poison-queue-cli",
		Usage: "Manage messages that failed every retry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "redis-addr",
				Usage:    "Redis address used for the event streams",
				EnvVars:  []string{"REDIS_ADDR"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "preview messages",
				Action: func(c *cli.Context) error {
					messages, err := newPoisonQueue(c).Preview(c.Context)
					if err != nil {
						return err
					}

					for _, m := range messages {
						fmt.Printf("%v\t%v\t%v\t%v\n", m.ID, m.Topic, m.Handler, m.Reason)
					}

					return nil
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<message_id>",
				Usage:     "remove message",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return cli.Exit("exactly one message id is required", 2)
					}

					return newPoisonQueue(c).Remove(c.Context, c.Args().First())
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.FromContext(context.Background()).WithError(err).Error("poison-queue-cli failed")
		os.Exit(1)
	}
}
