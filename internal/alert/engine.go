package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/metrics"
)

// PriceSource resolves the current price for a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Store is the persistence surface the engine needs; *Service satisfies it.
type Store interface {
	ActiveAlerts(ctx context.Context) ([]Alert, error)
	MarkTriggered(ctx context.Context, alertID int64) error
}

// Notifier delivers a fired alert to the user.
type Notifier interface {
	NotifyAlert(ctx context.Context, telegramUserID int64, a Alert, price float64) error
}

// Engine periodically sweeps active alerts against current prices and also
// checks live trade ticks against a cached copy of the active set.
type Engine struct {
	svc      Store
	prices   PriceSource
	notifier Notifier
	m        *metrics.Metrics
	interval time.Duration

	mu     sync.RWMutex
	cached []Alert
}

func NewEngine(svc Store, prices PriceSource, notifier Notifier, m *metrics.Metrics, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Engine{svc: svc, prices: prices, notifier: notifier, m: m, interval: interval}
}

// Run sweeps until the context is cancelled. The first sweep happens
// immediately so restarts do not delay overdue alerts.
func (e *Engine) Run(ctx context.Context) {
	log.Info().Dur("interval", e.interval).Msg("alert engine started")
	e.sweep(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("alert engine stopped")
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	alerts, err := e.svc.ActiveAlerts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("alert sweep: load active alerts")
		return
	}

	e.mu.Lock()
	e.cached = alerts
	e.mu.Unlock()
	if e.m != nil {
		e.m.AlertsActive.Set(float64(len(alerts)))
	}
	if len(alerts) == 0 {
		return
	}

	// One price lookup per distinct symbol.
	prices := make(map[string]float64)
	for _, a := range alerts {
		if _, ok := prices[a.Symbol]; ok {
			continue
		}
		price, err := e.prices.Price(ctx, a.Symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", a.Symbol).Msg("alert sweep: price lookup failed")
			continue
		}
		prices[a.Symbol] = price
	}

	for _, a := range alerts {
		price, ok := prices[a.Symbol]
		if !ok || !a.Met(price) {
			continue
		}
		e.fire(ctx, a, price)
	}
}

// CheckTick tests a live trade tick against the cached active set. The
// cache refreshes on every sweep, so a just-added alert may wait one
// interval before ticks cover it.
func (e *Engine) CheckTick(ctx context.Context, tick market.Tick) {
	e.mu.RLock()
	var hits []Alert
	for _, a := range e.cached {
		if a.Symbol == tick.Symbol && a.Met(tick.Price) {
			hits = append(hits, a)
		}
	}
	e.mu.RUnlock()

	for _, a := range hits {
		e.fire(ctx, a, tick.Price)
	}
}

func (e *Engine) fire(ctx context.Context, a Alert, price float64) {
	// Deactivate first so a slow notifier cannot double-fire; the row
	// update also dedupes sweep vs tick races.
	if err := e.svc.MarkTriggered(ctx, a.ID); err != nil {
		if err != ErrAlertNotFound {
			log.Error().Err(err).Int64("alert_id", a.ID).Msg("mark alert triggered")
		}
		return
	}

	e.mu.Lock()
	for i := range e.cached {
		if e.cached[i].ID == a.ID {
			e.cached = append(e.cached[:i], e.cached[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if e.m != nil {
		e.m.AlertsTriggered.Inc()
	}
	log.Info().
		Int64("alert_id", a.ID).
		Str("symbol", a.Symbol).
		Str("condition", a.Condition).
		Float64("target", a.TargetPrice).
		Float64("price", price).
		Msg("alert triggered")

	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyAlert(ctx, a.TelegramUserID, a, price); err != nil {
		log.Error().Err(err).Int64("alert_id", a.ID).Msg("notify alert")
	}
}
