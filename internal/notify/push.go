package notify

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"card-alerts-go/internal/models"
)

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

// SubscriptionSource lists a user's registered browser subscriptions.
type SubscriptionSource interface {
	PushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error)
}

// Pusher delivers browser push notifications to a user's registered
// subscriptions. Failures are per-subscription and logged.
type Pusher struct {
	c      PushConfig
	subs   SubscriptionSource
	logger *zap.Logger
}

func NewPusher(c PushConfig, subs SubscriptionSource, logger *zap.Logger) *Pusher {
	return &Pusher{c: c, subs: subs, logger: logger}
}

func (p *Pusher) Enabled() bool {
	return p.c.VAPIDPublicKey != "" && p.c.VAPIDPrivateKey != ""
}

func (p *Pusher) PublicKey() string {
	return p.c.VAPIDPublicKey
}

func (p *Pusher) SendToUser(ctx context.Context, userID int, message string) {
	if !p.Enabled() {
		return
	}
	subs, err := p.subs.PushSubscriptions(ctx, userID)
	if err != nil {
		p.logger.Warn("failed to load push subscriptions", zap.Int("user_id", userID), zap.Error(err))
		return
	}

	for _, sub := range subs {
		s := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}
		resp, err := webpush.SendNotification([]byte(message), s, &webpush.Options{
			Subscriber:      p.c.Subscriber,
			VAPIDPublicKey:  p.c.VAPIDPublicKey,
			VAPIDPrivateKey: p.c.VAPIDPrivateKey,
			TTL:             30,
		})
		if err != nil {
			p.logger.Warn("failed to send push", zap.String("endpoint", sub.Endpoint), zap.Error(err))
			continue
		}
		resp.Body.Close()
	}
}
