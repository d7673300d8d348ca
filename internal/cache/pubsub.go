package cache

import (
	"context"
)

// Publish publishes a message to a Redis channel
func (c *Cache) Publish(ctx context.Context, channel, message string) error {
	return c.client.Publish(ctx, channel, message).Err()
}
