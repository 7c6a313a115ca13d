// Package alert manages price alerts and the background engine that fires them.
package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// parseTelegramID converts the users.telegram_id column, stored as text,
// back to the numeric chat id alerts are delivered to.
func parseTelegramID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram id %q: %w", s, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("telegram id %q: zero id", s)
	}
	return id, nil
}

var (
	// ErrAlertNotFound is returned when an alert id does not exist or
	// belongs to a different user.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrUserNotFound is returned when the Telegram user has no record.
	ErrUserNotFound = errors.New("user not found")
)

// Conditions accepted by Add.
const (
	CondAbove = "above"
	CondBelow = "below"
)

// Alert is one stored price alert.
type Alert struct {
	ID             int64
	TelegramUserID int64
	Symbol         string
	Condition      string
	TargetPrice    float64
	Active         bool
	TriggeredAt    *time.Time
	CreatedAt      time.Time
}

// Met reports whether the alert condition holds at the given price.
func (a Alert) Met(price float64) bool {
	switch a.Condition {
	case CondAbove:
		return price >= a.TargetPrice
	case CondBelow:
		return price <= a.TargetPrice
	}
	return false
}

// Service persists alerts in Postgres.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Add stores a new active alert for the user, creating the user row when
// needed, and returns the alert id.
func (s *Service) Add(ctx context.Context, telegramUserID int64, symbol, condition string, target float64) (int64, error) {
	if condition != CondAbove && condition != CondBelow {
		return 0, fmt.Errorf("invalid condition %q", condition)
	}
	if target <= 0 {
		return 0, fmt.Errorf("target price must be positive, got %v", target)
	}

	var userID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id) VALUES ($1)
		ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
		RETURNING id`,
		fmt.Sprintf("%d", telegramUserID),
	).Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}

	var alertID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO alerts (user_id, symbol, condition, target_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		userID, symbol, condition, target,
	).Scan(&alertID)
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	return alertID, nil
}

// List returns the user's active alerts, newest first. A user with no
// record gets an empty slice.
func (s *Service) List(ctx context.Context, telegramUserID int64) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.symbol, a.condition, a.target_price, a.active, a.triggered_at, a.created_at
		FROM alerts a
		JOIN users u ON u.id = a.user_id
		WHERE u.telegram_id = $1 AND a.active
		ORDER BY a.created_at DESC`,
		fmt.Sprintf("%d", telegramUserID),
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a := Alert{TelegramUserID: telegramUserID}
		var triggered sql.NullTime
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Condition, &a.TargetPrice, &a.Active, &triggered, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if triggered.Valid {
			t := triggered.Time
			a.TriggeredAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Remove deactivates an alert after verifying ownership. A caller with no
// user record gets ErrUserNotFound.
func (s *Service) Remove(ctx context.Context, telegramUserID, alertID int64) error {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE telegram_id = $1`,
		fmt.Sprintf("%d", telegramUserID),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET active = FALSE
		WHERE id = $1 AND active AND user_id = $2`,
		alertID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove alert: %w", err)
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// ActiveAlerts returns every active alert across all users, for the engine
// sweep.
func (s *Service) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, u.telegram_id, a.symbol, a.condition, a.target_price, a.created_at
		FROM alerts a
		JOIN users u ON u.id = a.user_id
		WHERE a.active
		ORDER BY a.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("active alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a := Alert{Active: true}
		var tgID string
		if err := rows.Scan(&a.ID, &tgID, &a.Symbol, &a.Condition, &a.TargetPrice, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.TelegramUserID, err = parseTelegramID(tgID)
		if err != nil {
			log.Warn().Err(err).Int64("alert_id", a.ID).Msg("skipping alert with malformed telegram id")
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkTriggered deactivates a fired alert and stamps the trigger time.
func (s *Service) MarkTriggered(ctx context.Context, alertID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET active = FALSE, triggered_at = NOW() WHERE id = $1 AND active`,
		alertID,
	)
	if err != nil {
		return fmt.Errorf("mark triggered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark triggered: %w", err)
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// CountActive returns the number of active alerts, for the gauge.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE active`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}
