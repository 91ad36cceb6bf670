package store

import (
	"context"

	"card-alerts-go/internal/models"
)

// UserStore is the user directory (PostgreSQL)
type UserStore interface {
	CreateUser(ctx context.Context, username, email, password string, superuser bool) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id int) error
}

// PushStore keeps browser push subscriptions (PostgreSQL)
type PushStore interface {
	SavePushSubscription(ctx context.Context, userID int, endpoint, p256dh, auth string) error
	PushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error)
}

// AuditStore records and lists alert mutations (PostgreSQL)
type AuditStore interface {
	Record(ctx context.Context, actorID int, action string, alertID int, metadata string) error
	GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}
