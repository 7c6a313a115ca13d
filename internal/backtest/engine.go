// Package backtest replays historical daily bars through the indicator
// signal and simulates a long-only strategy, so signal changes can be
// sanity-checked before they reach live users.
package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/analysis"
	"github.com/amar01vidality/tradeai-companion/internal/market"
)

// Config tunes a simulation run.
type Config struct {
	InitialBalance float64 // starting cash, default 10000
	Commission     float64 // fraction charged per fill, e.g. 0.001
	Window         int     // bars fed to the signal, minimum 21
}

func (c *Config) applyDefaults() {
	if c.InitialBalance <= 0 {
		c.InitialBalance = 10000
	}
	if c.Window < 21 {
		c.Window = 60
	}
}

// Trade is one completed round trip.
type Trade struct {
	Symbol     string    `json:"symbol"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Shares     float64   `json:"shares"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Commission float64   `json:"commission"`
	ExitReason string    `json:"exit_reason"` // "signal" or "end_of_data"
}

// Results aggregates the outcome of one or more runs.
type Results struct {
	Trades          []Trade
	TotalTrades     int
	WinningTrades   int
	LosingTrades    int
	TotalPnL        float64
	TotalCommission float64
	WinRate         float64
	ProfitFactor    float64
	MaxDrawdown     float64 // percent of peak equity
	StartTime       time.Time
	EndTime         time.Time
	InitialBalance  float64
	FinalBalance    float64
}

// Merge folds another run into r so multi-symbol results report together.
// Balances are summed, so give each run its share of the starting cash.
func (r *Results) Merge(other *Results) {
	r.Trades = append(r.Trades, other.Trades...)
	r.TotalCommission += other.TotalCommission
	r.TotalPnL += other.TotalPnL
	r.InitialBalance += other.InitialBalance
	r.FinalBalance += other.FinalBalance
	if r.StartTime.IsZero() || (!other.StartTime.IsZero() && other.StartTime.Before(r.StartTime)) {
		r.StartTime = other.StartTime
	}
	if other.EndTime.After(r.EndTime) {
		r.EndTime = other.EndTime
	}
	if other.MaxDrawdown > r.MaxDrawdown {
		r.MaxDrawdown = other.MaxDrawdown
	}
	r.finalize()
}

func (r *Results) finalize() {
	r.TotalTrades = len(r.Trades)
	r.WinningTrades, r.LosingTrades = 0, 0
	var grossWin, grossLoss float64
	for _, t := range r.Trades {
		if t.PnL > 0 {
			r.WinningTrades++
			grossWin += t.PnL
		} else if t.PnL < 0 {
			r.LosingTrades++
			grossLoss += -t.PnL
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
	// Undefined without losing trades; left at zero rather than infinity
	// so the JSON report stays marshalable.
	if grossLoss > 0 {
		r.ProfitFactor = grossWin / grossLoss
	}
}

// Run simulates the long-only signal strategy over one symbol's bars,
// oldest first. It buys the full balance on a bullish signal and sells on
// a bearish one; any open position closes on the last bar.
func Run(symbol string, bars []market.Bar, cfg Config) (*Results, error) {
	cfg.applyDefaults()
	if len(bars) <= cfg.Window {
		return nil, fmt.Errorf("need more than %d bars for %s, have %d", cfg.Window, symbol, len(bars))
	}

	res := &Results{
		InitialBalance: cfg.InitialBalance,
		StartTime:      bars[0].Ts,
		EndTime:        bars[len(bars)-1].Ts,
	}

	balance := cfg.InitialBalance
	peak := balance
	var shares float64
	var entryPrice float64
	var entryTime time.Time
	var entryFee float64

	closePosition := func(bar market.Bar, reason string) {
		proceeds := shares * bar.Close
		exitFee := proceeds * cfg.Commission
		balance += proceeds - exitFee

		cost := shares * entryPrice
		t := Trade{
			Symbol:     symbol,
			EntryTime:  entryTime,
			ExitTime:   bar.Ts,
			EntryPrice: entryPrice,
			ExitPrice:  bar.Close,
			Shares:     shares,
			PnL:        proceeds - cost - entryFee - exitFee,
			Commission: entryFee + exitFee,
			ExitReason: reason,
		}
		if cost > 0 {
			t.PnLPercent = t.PnL / cost * 100
		}
		res.Trades = append(res.Trades, t)
		res.TotalPnL += t.PnL
		res.TotalCommission += t.Commission
		shares = 0

		if balance > peak {
			peak = balance
		}
		if peak > 0 {
			if dd := (peak - balance) / peak * 100; dd > res.MaxDrawdown {
				res.MaxDrawdown = dd
			}
		}
	}

	for i := cfg.Window; i < len(bars); i++ {
		window := bars[i-cfg.Window : i+1]
		snap, err := analysis.Summarize(symbol, window)
		if err != nil {
			continue
		}
		bar := bars[i]

		switch {
		case shares == 0 && snap.Signal == analysis.SignalBullish:
			fee := balance * cfg.Commission
			spendable := balance - fee
			if spendable <= 0 || bar.Close <= 0 {
				continue
			}
			shares = spendable / bar.Close
			entryPrice = bar.Close
			entryTime = bar.Ts
			entryFee = fee
			balance = 0
		case shares > 0 && snap.Signal == analysis.SignalBearish:
			closePosition(bar, "signal")
		}
	}

	if shares > 0 {
		closePosition(bars[len(bars)-1], "end_of_data")
	}

	res.FinalBalance = balance
	res.finalize()

	log.Info().
		Str("symbol", symbol).
		Int("trades", res.TotalTrades).
		Float64("pnl", res.TotalPnL).
		Float64("win_rate", res.WinRate).
		Msg("backtest run complete")
	return res, nil
}
