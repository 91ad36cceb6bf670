// Package notify implements the outbound notification transport: email
// over SMTP, chat webhook posts, and browser push. All sends are
// best-effort; a failure is reported to the caller who logs it without
// failing the triggering operation.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"card-alerts-go/internal/metrics"
	"card-alerts-go/internal/models"
)

// Service bundles the transports behind the interface the alert service
// consumes. The mailer decides whether the transport counts as
// configured: with email disabled every send is skipped.
type Service struct {
	mailer *Mailer
	chat   *ChatClient
	push   *Pusher
	logger *zap.Logger
}

func NewService(mailer *Mailer, chat *ChatClient, push *Pusher, logger *zap.Logger) *Service {
	return &Service{mailer: mailer, chat: chat, push: push, logger: logger}
}

func (s *Service) IsConfigured() bool {
	return s.mailer.Enabled()
}

func (s *Service) Open() error {
	return s.mailer.Open()
}

func (s *Service) Close() error {
	return s.mailer.Close()
}

// AlertCreated confirms a new alert to its creator and announces it on
// the chat channel when one is configured.
func (s *Service) AlertCreated(ctx context.Context, a models.Alert, creator models.User) error {
	subject := fmt.Sprintf("You set up an alert on card %d", a.CardID)
	body := fmt.Sprintf(
		"Your alert on card %d is active. It fires on the %s condition and notifies %d email recipient(s).",
		a.CardID, a.Condition, len(a.EmailRecipients()),
	)
	err := s.email([]string{creator.Email}, subject, body)

	if ch, ok := a.Channel(models.ChannelChat); ok && s.chat.Enabled() {
		text := fmt.Sprintf("New alert on card %d created by %s.", a.CardID, creator.Username)
		if cerr := s.chat.Send(ctx, ch.Destination, text); cerr != nil {
			metrics.Notifications.WithLabelValues("chat", "error").Inc()
			s.logger.Warn("chat announce failed", zap.Int("alert_id", a.ID), zap.Error(cerr))
		} else {
			metrics.Notifications.WithLabelValues("chat", "ok").Inc()
		}
	}
	return err
}

// AdminUnsubscribed tells a recipient an administrator removed them.
func (s *Service) AdminUnsubscribed(ctx context.Context, a models.Alert, removed models.Recipient, admin models.Actor) error {
	subject := fmt.Sprintf("You were unsubscribed from an alert on card %d", a.CardID)
	body := fmt.Sprintf(
		"An administrator removed you from the alert on card %d. You will no longer receive its notifications.",
		a.CardID,
	)
	s.push.SendToUser(ctx, removed.UserID, subject)
	return s.email([]string{removed.Email}, subject, body)
}

// RecipientAdded tells a recipient an administrator subscribed them.
func (s *Service) RecipientAdded(ctx context.Context, a models.Alert, added models.Recipient, admin models.Actor) error {
	subject := fmt.Sprintf("You were added to an alert on card %d", a.CardID)
	body := fmt.Sprintf(
		"An administrator added you to the alert on card %d. You will be notified when it fires (%s condition).",
		a.CardID, a.Condition,
	)
	s.push.SendToUser(ctx, added.UserID, subject)
	return s.email([]string{added.Email}, subject, body)
}

// SelfUnsubscribed confirms a user's own unsubscribe.
func (s *Service) SelfUnsubscribed(ctx context.Context, a models.Alert, user models.Recipient) error {
	subject := fmt.Sprintf("You unsubscribed from an alert on card %d", a.CardID)
	body := fmt.Sprintf(
		"You unsubscribed from the alert on card %d and will no longer receive its notifications.",
		a.CardID,
	)
	return s.email([]string{user.Email}, subject, body)
}

func (s *Service) email(to []string, subject, body string) error {
	if !s.mailer.Enabled() {
		metrics.Notifications.WithLabelValues("email", "skipped").Inc()
		return nil
	}
	cleaned := to[:0:0]
	for _, addr := range to {
		if addr != "" {
			cleaned = append(cleaned, addr)
		}
	}
	if len(cleaned) == 0 {
		metrics.Notifications.WithLabelValues("email", "skipped").Inc()
		return nil
	}
	if err := s.mailer.Send(cleaned, subject, body); err != nil {
		metrics.Notifications.WithLabelValues("email", "error").Inc()
		return err
	}
	metrics.Notifications.WithLabelValues("email", "ok").Inc()
	return nil
}
