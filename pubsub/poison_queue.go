package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"

	"travel/entity"
)

// PoisonQueueTopic receives messages that failed every retry.
const PoisonQueueTopic = "poison_queue"

const poisonQueueConsumerGroup = "svc-travel.poison_queue_cli"

type PoisonedMessage struct {
	ID      string
	Reason  string
	Topic   string
	Handler string
}

// PoisonQueue previews and removes poisoned messages. It walks the queue by re-publishing every
// message it reads until it sees the first one again, so messages that are kept move to the end
// of the stream.
type PoisonQueue struct {
	rdb         *redis.Client
	logger      watermill.LoggerAdapter
	idleTimeout time.Duration
}

func NewPoisonQueue(rdb *redis.Client, logger watermill.LoggerAdapter) PoisonQueue {
	if rdb == nil {
		panic("redis client is nil")
	}

	return PoisonQueue{
		rdb:         rdb,
		logger:      logger,
		idleTimeout: 2 * time.Second,
	}
}

func (q PoisonQueue) Preview(ctx context.Context) ([]PoisonedMessage, error) {
	var result []PoisonedMessage

	err := q.walk(ctx, func(msg *message.Message) (keep bool, stop bool) {
		result = append(result, PoisonedMessage{
			ID:      msg.UUID,
			Reason:  msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			Topic:   msg.Metadata.Get(middleware.PoisonedTopicKey),
			Handler: msg.Metadata.Get(middleware.PoisonedHandlerKey),
		})
		return true, false
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (q PoisonQueue) Remove(ctx context.Context, messageID string) error {
	removed := false

	err := q.walk(ctx, func(msg *message.Message) (keep bool, stop bool) {
		if msg.UUID == messageID {
			removed = true
			return false, true
		}
		return true, false
	})
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("poisoned message %s: %w", messageID, entity.ErrNotFound)
	}

	return nil
}

func (q PoisonQueue) walk(ctx context.Context, visit func(msg *message.Message) (keep bool, stop bool)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subscriber := NewRedisSubscriber(q.rdb, poisonQueueConsumerGroup, q.logger)
	defer subscriber.Close()

	publisher := NewRedisPublisher(q.rdb, q.logger)
	defer publisher.Close()

	messages, err := subscriber.Subscribe(ctx, PoisonQueueTopic)
	if err != nil {
		return fmt.Errorf("could not subscribe to poison queue: %w", err)
	}

	firstID := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(q.idleTimeout):
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			seenAll := firstID == msg.UUID
			if firstID == "" {
				firstID = msg.UUID
			}

			keep, stop := true, seenAll
			if !seenAll {
				keep, stop = visit(msg)
			}
			if keep {
				if err := publisher.Publish(PoisonQueueTopic, msg.Copy()); err != nil {
					msg.Nack()
					return fmt.Errorf("could not re-publish poisoned message %s: %w", msg.UUID, err)
				}
			}
			msg.Ack()

			if stop {
				return nil
			}
		}
	}
}
