// Package trade records and reports paper trades per Telegram user.
package trade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrTradeNotFound is returned when the trade id does not exist or
	// belongs to another user.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrUserNotFound is returned when the user has no recorded activity.
	ErrUserNotFound = errors.New("user not found")
)

// Trade is a single recorded paper trade.
type Trade struct {
	ID         int64
	Symbol     string
	Action     string // "buy" or "sell"
	Quantity   float64
	Price      float64
	ExecutedAt time.Time
}

// Service manages trades in the database.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// validateTrade checks the command-level trade constraints before any
// database work.
func validateTrade(action string, quantity, price float64) (string, error) {
	action = strings.ToLower(action)
	if action != "buy" && action != "sell" {
		return "", fmt.Errorf("action must be 'buy' or 'sell', got %q", action)
	}
	if quantity <= 0 {
		return "", fmt.Errorf("quantity must be positive, got %v", quantity)
	}
	if price <= 0 {
		return "", fmt.Errorf("price must be positive, got %v", price)
	}
	return action, nil
}

// ensureUser finds or creates the user row for a Telegram user id and
// returns the internal user id.
func (s *Service) ensureUser(ctx context.Context, telegramUserID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id) VALUES ($1)
		ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
		RETURNING id`,
		fmt.Sprintf("%d", telegramUserID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	return id, nil
}

func (s *Service) lookupUser(ctx context.Context, telegramUserID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE telegram_id = $1`,
		fmt.Sprintf("%d", telegramUserID),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	return id, nil
}

// CreateTrade records a trade, creating the user row on first use.
func (s *Service) CreateTrade(ctx context.Context, telegramUserID int64, symbol, action string, quantity, price float64) (int64, error) {
	action, err := validateTrade(action, quantity, price)
	if err != nil {
		return 0, err
	}

	userID, err := s.ensureUser(ctx, telegramUserID)
	if err != nil {
		return 0, err
	}

	var tradeID int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO trades (user_id, symbol, action, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		userID, strings.ToUpper(symbol), action, quantity, price, time.Now().UTC(),
	).Scan(&tradeID)
	if err != nil {
		return 0, fmt.Errorf("create trade: %w", err)
	}

	log.Info().
		Int64("user", telegramUserID).
		Str("symbol", strings.ToUpper(symbol)).
		Str("action", action).
		Float64("qty", quantity).
		Float64("price", price).
		Msg("trade recorded")

	return tradeID, nil
}

// ListTrades returns all trades for a Telegram user, newest first.
// A user with no history gets an empty slice, not an error.
func (s *Service) ListTrades(ctx context.Context, telegramUserID int64) ([]Trade, error) {
	userID, err := s.lookupUser(ctx, telegramUserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, action, quantity, price, executed_at
		FROM trades WHERE user_id = $1
		ORDER BY executed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Action, &t.Quantity, &t.Price, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DeleteTrade removes a trade after verifying ownership.
func (s *Service) DeleteTrade(ctx context.Context, telegramUserID, tradeID int64) error {
	userID, err := s.lookupUser(ctx, telegramUserID)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trades WHERE id = $1 AND user_id = $2`,
		tradeID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if affected == 0 {
		return ErrTradeNotFound
	}

	log.Info().Int64("user", telegramUserID).Int64("trade", tradeID).Msg("trade deleted")
	return nil
}
