package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/storage"
)

// BarFetcher pulls bars from the upstream data API; *market.Client
// satisfies it.
type BarFetcher interface {
	GetBars(ctx context.Context, symbol string, timeframe market.Timeframe, start time.Time, limit int) ([]market.Bar, error)
}

// LoadBars returns up to days of daily history for symbol, preferring the
// local cache and falling back to the upstream API. Either source may be
// nil.
func LoadBars(ctx context.Context, store *storage.Store, fetcher BarFetcher, symbol string, days int) ([]market.Bar, error) {
	start := time.Now().AddDate(0, 0, -days)

	if store != nil {
		records, err := store.GetBars(symbol, start, time.Now())
		if err == nil && len(records) > 0 {
			log.Debug().Str("symbol", symbol).Int("bars", len(records)).Msg("loaded bars from local cache")
			return recordsToBars(records), nil
		}
	}

	if fetcher == nil {
		return nil, fmt.Errorf("no cached bars for %s and no data client configured", symbol)
	}
	bars, err := fetcher.GetBars(ctx, symbol, market.Timeframe1Day, start, days)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}
	return bars, nil
}

func recordsToBars(records []storage.BarRecord) []market.Bar {
	bars := make([]market.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, market.Bar{
			Symbol: r.Symbol,
			Ts:     r.Timestamp,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars
}
