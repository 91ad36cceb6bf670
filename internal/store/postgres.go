package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"card-alerts-go/internal/alerts"
	"card-alerts-go/internal/models"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// NewPostgresStoreWithDB wraps an existing connection; used by tests.
func NewPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// RunMigrations creates tables if they don't exist
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	s.logger.Debug("schema ensured")
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Alert methods

func (s *PostgresStore) GetAlert(ctx context.Context, id int) (models.Alert, error) {
	var a models.Alert
	var aboveGoal sql.NullBool

	err := s.db.QueryRowContext(ctx,
		`SELECT id, creator_id, card_id, condition, first_run_only, above_goal_only, created_at, updated_at
		 FROM alerts WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.CreatorID, &a.CardID, &a.Condition, &a.FirstRunOnly, &aboveGoal, &a.CreatedAt, &a.UpdatedAt)

	if err == sql.ErrNoRows {
		return models.Alert{}, alerts.ErrNotFound
	}
	if err != nil {
		return models.Alert{}, err
	}
	if aboveGoal.Valid {
		a.AboveGoalOnly = &aboveGoal.Bool
	}

	if err := s.loadChannels(ctx, &a); err != nil {
		return models.Alert{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, f alerts.Filter) ([]models.Alert, error) {
	query := `SELECT DISTINCT a.id, a.creator_id, a.card_id, a.condition, a.first_run_only, a.above_goal_only, a.created_at, a.updated_at
		 FROM alerts a
		 LEFT JOIN alert_recipients ar ON ar.alert_id = a.id`
	var args []any
	where := ""
	if f.ViewerID != 0 {
		args = append(args, f.ViewerID)
		where = fmt.Sprintf(" WHERE (a.creator_id = $%d OR ar.user_id = $%d)", len(args), len(args))
	}
	if f.CardID != 0 {
		args = append(args, f.CardID)
		if where == "" {
			where = fmt.Sprintf(" WHERE a.card_id = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND a.card_id = $%d", len(args))
		}
	}
	query += where + " ORDER BY a.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []models.Alert
	for rows.Next() {
		var a models.Alert
		var aboveGoal sql.NullBool
		if err := rows.Scan(&a.ID, &a.CreatorID, &a.CardID, &a.Condition, &a.FirstRunOnly, &aboveGoal, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if aboveGoal.Valid {
			a.AboveGoalOnly = &aboveGoal.Bool
		}
		found = append(found, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range found {
		if err := s.loadChannels(ctx, &found[i]); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (s *PostgresStore) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Alert{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO alerts (creator_id, card_id, condition, first_run_only, above_goal_only, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		a.CreatorID, a.CardID, a.Condition, a.FirstRunOnly, nullBool(a.AboveGoalOnly),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Alert{}, err
	}

	if err := s.writeChannels(ctx, tx, a); err != nil {
		return models.Alert{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Alert{}, err
	}
	return s.GetAlert(ctx, a.ID)
}

func (s *PostgresStore) UpdateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Alert{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE alerts SET card_id = $1, condition = $2, first_run_only = $3, above_goal_only = $4, updated_at = NOW()
		 WHERE id = $5`,
		a.CardID, a.Condition, a.FirstRunOnly, nullBool(a.AboveGoalOnly), a.ID,
	)
	if err != nil {
		return models.Alert{}, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.Alert{}, alerts.ErrNotFound
	}

	// Channels and recipients are replaced wholesale; the transaction
	// keeps the swap atomic.
	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_channels WHERE alert_id = $1`, a.ID); err != nil {
		return models.Alert{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_recipients WHERE alert_id = $1`, a.ID); err != nil {
		return models.Alert{}, err
	}
	if err := s.writeChannels(ctx, tx, a); err != nil {
		return models.Alert{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Alert{}, err
	}
	return s.GetAlert(ctx, a.ID)
}

func (s *PostgresStore) DeleteAlert(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return alerts.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveRecipient(ctx context.Context, alertID, userID int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM alert_recipients WHERE alert_id = $1 AND user_id = $2`,
		alertID, userID,
	)
	return err
}

// CanReadCard reports whether the actor may read the monitored question.
// Superusers always may; everyone else needs a card_permissions row.
func (s *PostgresStore) CanReadCard(ctx context.Context, actor models.Actor, cardID int) (bool, error) {
	if actor.IsSuperuser {
		return true, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM card_permissions WHERE card_id = $1 AND user_id = $2`,
		cardID, actor.UserID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) loadChannels(ctx context.Context, a *models.Alert) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COALESCE(destination, '') FROM alert_channels WHERE alert_id = $1 ORDER BY id`,
		a.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	a.Channels = nil
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.Kind, &ch.Destination); err != nil {
			return err
		}
		a.Channels = append(a.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range a.Channels {
		if a.Channels[i].Kind != models.ChannelEmail {
			continue
		}
		recipients, err := s.loadRecipients(ctx, a.ID)
		if err != nil {
			return err
		}
		a.Channels[i].Recipients = recipients
	}
	return nil
}

func (s *PostgresStore) loadRecipients(ctx context.Context, alertID int) ([]models.Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.email
		 FROM alert_recipients ar
		 INNER JOIN users u ON u.id = ar.user_id
		 WHERE ar.alert_id = $1
		 ORDER BY u.id`,
		alertID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.UserID, &r.Email); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (s *PostgresStore) writeChannels(ctx context.Context, tx *sql.Tx, a models.Alert) error {
	for _, ch := range a.Channels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alert_channels (alert_id, kind, destination) VALUES ($1, $2, $3)`,
			a.ID, ch.Kind, nullString(ch.Destination),
		); err != nil {
			return err
		}
		if ch.Kind != models.ChannelEmail {
			continue
		}
		for _, r := range ch.Recipients {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO alert_recipients (alert_id, user_id) VALUES ($1, $2)
				 ON CONFLICT (alert_id, user_id) DO NOTHING`,
				a.ID, r.UserID,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
