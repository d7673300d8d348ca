package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricealert/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrUserNotFound  = errors.New("user not found")
)

const alertColumns = `id, user_id, market, symbol, percentage, base_price, upper_limit, lower_limit, created_at, updated_at`

const userColumns = `id, notifications_enabled, language, tier, device_token, last_checked_at`

// Store is the Postgres-backed persistence for users and alerts.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, connStr string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Set connection pool parameters
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Database connection established")
	return New(db, log), nil
}

// New wraps an existing handle.
func New(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ListUsers returns every user with the fields the due-user selector needs.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users`)
	if err != nil {
		s.log.Error("Failed to query users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.log.Error("Failed to retrieve user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// UpsertUserToken creates the user on first token registration, or refreshes its token.
func (s *Store) UpsertUserToken(ctx context.Context, userID, token, language string) error {
	query := `
		INSERT INTO users (id, notifications_enabled, language, tier, device_token)
		VALUES ($1, TRUE, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET device_token = EXCLUDED.device_token
	`
	if _, err := s.db.ExecContext(ctx, query, userID, language, string(models.TierFree), token); err != nil {
		s.log.Error("Failed to upsert user token", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// CreateAlert inserts a new alert into the database
func (s *Store) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `INSERT INTO alerts (` + alertColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID,
		alert.UserID,
		string(alert.Market),
		alert.Symbol,
		alert.Percentage,
		alert.BasePrice,
		alert.UpperLimit,
		alert.LowerLimit,
		alert.CreatedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		s.log.Error("Failed to create alert in database",
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// GetAlertByID retrieves an alert by its ID
func (s *Store) GetAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		s.log.Error("Failed to retrieve alert", zap.String("alert_id", id), zap.Error(err))
		return nil, err
	}
	return alert, nil
}

// UpdateAlert persists a re-armed band.
func (s *Store) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts
		SET percentage = $1, base_price = $2, upper_limit = $3, lower_limit = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		alert.Percentage,
		alert.BasePrice,
		alert.UpperLimit,
		alert.LowerLimit,
		alert.UpdatedAt,
		alert.ID,
	)
	if err != nil {
		s.log.Error("Failed to update alert", zap.String("alert_id", alert.ID), zap.Error(err))
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// CountAlerts returns how many active alerts a user holds.
func (s *Store) CountAlerts(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE user_id = $1`, userID).Scan(&n); err != nil {
		s.log.Error("Failed to count alerts", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// AlertsForUsers returns the alerts of the given users grouped by owner.
func (s *Store) AlertsForUsers(ctx context.Context, userIDs []string) (map[string][]*models.Alert, error) {
	out := make(map[string][]*models.Alert, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = ANY($1) ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		s.log.Error("Failed to query alerts by user IDs", zap.Int("users", len(userIDs)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out[alert.UserID] = append(out[alert.UserID], alert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAlertsByUser returns one user's alerts, oldest first.
func (s *Store) ListAlertsByUser(ctx context.Context, userID string) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		s.log.Error("Failed to query alerts by user ID", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// DeleteAlert removes an alert and returns its owner. ErrAlertNotFound means the row was
// already gone.
func (s *Store) DeleteAlert(ctx context.Context, id string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `DELETE FROM alerts WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrAlertNotFound
		}
		s.log.Error("Failed to delete alert", zap.String("alert_id", id), zap.Error(err))
		return "", err
	}
	return userID, nil
}

// CommitCycle deletes the triggered alerts and advances last_checked_at of every checked
// user in one transaction. Ids that are already gone are ignored.
func (s *Store) CommitCycle(ctx context.Context, triggered, checked []string, at time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cycle commit: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error("Failed to roll back cycle commit", zap.Error(rbErr))
			}
		}
	}()

	if len(triggered) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM alerts WHERE id = ANY($1)`, pq.Array(triggered)); err != nil {
			return fmt.Errorf("delete triggered alerts: %w", err)
		}
	}
	if len(checked) > 0 {
		if _, err = tx.ExecContext(ctx, `UPDATE users SET last_checked_at = $1 WHERE id = ANY($2)`, at, pq.Array(checked)); err != nil {
			return fmt.Errorf("advance last_checked_at: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cycle: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.Alert, error) {
	var alert models.Alert
	var market string
	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&market,
		&alert.Symbol,
		&alert.Percentage,
		&alert.BasePrice,
		&alert.UpperLimit,
		&alert.LowerLimit,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	alert.Market = models.Market(market)
	return &alert, nil
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	var tier string
	var token sql.NullString
	var lastChecked sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.NotificationsEnabled,
		&u.Language,
		&tier,
		&token,
		&lastChecked,
	)
	if err != nil {
		return nil, err
	}

	// Convert nullable fields
	u.Tier = models.Tier(tier)
	if token.Valid {
		val := token.String
		u.DeviceToken = &val
	}
	if lastChecked.Valid {
		val := lastChecked.Time
		u.LastCheckedAt = &val
	}
	return &u, nil
}
