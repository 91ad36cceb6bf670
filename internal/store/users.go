package store

import (
	"context"
	"database/sql"
	"errors"

	"card-alerts-go/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// User methods

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, password string, superuser bool) (models.User, error) {
	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_superuser, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, username, email, password_hash, is_superuser, created_at`,
		username, email, passwordHash, superuser,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt)

	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_superuser, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_superuser, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (s *PostgresStore) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, is_superuser, created_at FROM users ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsSuperuser, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// Push subscription methods

func (s *PostgresStore) SavePushSubscription(ctx context.Context, userID int, endpoint, p256dh, auth string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (endpoint) DO UPDATE SET user_id = $1, p256dh = $3, auth = $4`,
		userID, endpoint, p256dh, auth,
	)
	return err
}

func (s *PostgresStore) PushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.PushSubscription
	for rows.Next() {
		var sub models.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Audit methods

func (s *PostgresStore) Record(ctx context.Context, actorID int, action string, alertID int, metadata string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, action, alert_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		actorID, action, alertID, nullString(metadata),
	)
	return err
}

func (s *PostgresStore) GetAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, action, COALESCE(alert_id, 0), COALESCE(metadata, ''), created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.AlertID, &entry.Metadata, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
