package store

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"card-alerts-go/internal/alerts"
)

const eventsChannel = "alert_events"

// EventFeed publishes alert mutation events on a Redis channel and lets
// the SSE handler subscribe to them. Publishing is best-effort: a failed
// publish is logged and never fails the originating operation.
type EventFeed struct {
	client *redis.Client
	logger *zap.Logger
}

func NewEventFeed(opts *redis.Options, logger *zap.Logger) *EventFeed {
	return &EventFeed{client: redis.NewClient(opts), logger: logger}
}

// NewEventFeedWithClient wraps an existing client; used by tests.
func NewEventFeedWithClient(client *redis.Client, logger *zap.Logger) *EventFeed {
	return &EventFeed{client: client, logger: logger}
}

func (f *EventFeed) Publish(ctx context.Context, e alerts.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		f.logger.Warn("event marshal failed", zap.Error(err))
		return
	}
	if err := f.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		f.logger.Warn("event publish failed",
			zap.String("action", e.Action), zap.Int("alert_id", e.AlertID), zap.Error(err))
	}
}

func (f *EventFeed) Subscribe(ctx context.Context) *redis.PubSub {
	return f.client.Subscribe(ctx, eventsChannel)
}

func (f *EventFeed) Close() error {
	return f.client.Close()
}
