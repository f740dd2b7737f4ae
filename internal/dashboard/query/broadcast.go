package query

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Broadcaster carries invalidated keys between dashboard replicas.
type Broadcaster interface {
	Publish(ctx context.Context, keys []Key) error
	// Subscribe blocks, passing keys published by other replicas to apply, until ctx ends.
	Subscribe(ctx context.Context, apply func([]Key)) error
}

type invalidationMessage struct {
	Origin string `json:"origin"`
	Keys   []Key  `json:"keys"`
}

// RedisBroadcaster publishes invalidations on a Redis pub/sub channel.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisBroadcaster connects to Redis and verifies the connection.
func NewRedisBroadcaster(ctx context.Context, addr, password string, db int, channel string, logger *slog.Logger) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

// Publish announces keys to every subscriber except this replica.
func (b *RedisBroadcaster) Publish(ctx context.Context, keys []Key) error {
	payload, err := json.Marshal(invalidationMessage{Origin: b.origin, Keys: keys})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe applies keys published by other replicas until ctx ends.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, apply func([]Key)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m invalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.logger.Warn("invalid invalidation message", "error", err)
				continue
			}
			if m.Origin == b.origin {
				continue
			}
			apply(m.Keys)
		}
	}
}

// Close releases the Redis connection.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
