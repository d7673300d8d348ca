package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is satisfied by cache.Cache.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// RedisDispatcher publishes messages on a Redis channel the push gateway subscribes to.
type RedisDispatcher struct {
	pub     Publisher
	channel string
}

func NewRedisDispatcher(pub Publisher, channel string) *RedisDispatcher {
	return &RedisDispatcher{pub: pub, channel: channel}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}
	if err := d.pub.Publish(ctx, d.channel, string(payload)); err != nil {
		return fmt.Errorf("publish push message: %w", err)
	}
	return nil
}
