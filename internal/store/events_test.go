package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"card-alerts-go/internal/alerts"
)

func setupTestFeed(t *testing.T) *EventFeed {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewEventFeedWithClient(client, zap.NewNop())
}

func TestEventFeed_PublishSubscribe(t *testing.T) {
	feed := setupTestFeed(t)
	ctx := context.Background()

	pubsub := feed.Subscribe(ctx)
	defer pubsub.Close()

	// Wait for the subscription to be established before publishing.
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	sent := alerts.Event{
		Action:  "update_alert",
		AlertID: 1,
		CardID:  10,
		ActorID: 7,
		At:      time.Now().UTC().Truncate(time.Second),
	}
	feed.Publish(ctx, sent)

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg, err := pubsub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var got alerts.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, sent.Action, got.Action)
	assert.Equal(t, sent.AlertID, got.AlertID)
	assert.Equal(t, sent.ActorID, got.ActorID)
}

func TestEventFeed_PublishSurvivesBrokenConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	feed := NewEventFeedWithClient(client, zap.NewNop())

	mr.Close()
	client.Close()

	// Publishing is best-effort; a dead broker must not panic or error
	// out of the caller.
	feed.Publish(context.Background(), alerts.Event{Action: "delete_alert", AlertID: 1})
}
