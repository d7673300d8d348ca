// Package notify hands push notifications to the delivery transport. Delivery is
// at-most-once: callers log failures and move on.
package notify

import (
	"context"
)

// Message is one push notification addressed to a device.
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher attempts delivery of a single message.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}
