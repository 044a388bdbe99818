package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/quickshop/quickshop-backend/pkg/logger"
)

// Notifier receives a human-readable message when a new product
// arrives on the feed
type Notifier func(message string)

// Feed consumes product change events and folds them into a
// ProjectionStore. It is the subscriber counterpart to the Hub and is
// what edge caches and test harnesses run against the feed endpoint.
type Feed struct {
	store        *ProjectionStore
	notify       Notifier
	adminContext bool
}

type FeedOption func(*Feed)

// WithNotifier installs a callback fired on insert events
func WithNotifier(n Notifier) FeedOption {
	return func(f *Feed) {
		f.notify = n
	}
}

// WithAdminContext suppresses new-arrival notifications. Admin tooling
// creates the products in the first place and should not toast itself.
func WithAdminContext() FeedOption {
	return func(f *Feed) {
		f.adminContext = true
	}
}

func NewFeed(store *ProjectionStore, opts ...FeedOption) *Feed {
	f := &Feed{store: store}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle applies one raw feed message to the projection store
func (f *Feed) Handle(message []byte) error {
	var event ProductEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return fmt.Errorf("invalid feed message: %w", err)
	}

	f.store.Apply(event)

	if event.Type == EventInsert && event.Product != nil && f.notify != nil && !f.adminContext {
		f.notify(fmt.Sprintf("New arrival: %s", event.Product.Name))
	}

	return nil
}

// Run reads feed messages from a websocket connection until the
// context is cancelled or the connection fails. The connection is
// closed on return.
func (f *Feed) Run(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed connection closed: %w", err)
		}

		if err := f.Handle(message); err != nil {
			logger.Warn("Skipping malformed feed message", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
