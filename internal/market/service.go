package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/metrics"
	"github.com/amar01vidality/tradeai-companion/internal/storage"
)

// Service layers a Redis read-through cache and a BoltDB write-through
// history cache over the data API client. Redis being unreachable only
// costs the cache; lookups fall through to the upstream API.
type Service struct {
	client *Client
	rdb    *redis.Client
	store  *storage.Store
	m      *metrics.Metrics

	quoteTTL time.Duration
	barTTL   time.Duration

	warnOnce sync.Once
}

// NewService wires the market data service. rdb and store may be nil;
// the corresponding cache layer is then skipped.
func NewService(client *Client, rdb *redis.Client, store *storage.Store, m *metrics.Metrics, quoteTTL, barTTL time.Duration) *Service {
	if quoteTTL <= 0 {
		quoteTTL = 30 * time.Second
	}
	if barTTL <= 0 {
		barTTL = 5 * time.Minute
	}
	return &Service{
		client:   client,
		rdb:      rdb,
		store:    store,
		m:        m,
		quoteTTL: quoteTTL,
		barTTL:   barTTL,
	}
}

// NewRedisClient creates and pings a Redis client from a connection URL.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func barsKey(symbol string, tf Timeframe) string {
	return fmt.Sprintf("bars:%s:%s", symbol, tf)
}

// Quote returns the latest quote for a symbol, served from Redis when
// fresh enough.
func (s *Service) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, quoteKey(symbol)).Bytes()
		if err == nil {
			var q Quote
			if json.Unmarshal(data, &q) == nil {
				s.countCacheHit()
				return &q, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.warnCacheDown(err, quoteKey(symbol))
		}
		s.countCacheMiss()
	}

	s.countRequest()
	q, err := s.client.GetQuote(ctx, symbol)
	if err != nil {
		s.countError()
		return nil, err
	}

	s.cacheSet(ctx, quoteKey(symbol), q, s.quoteTTL)

	if s.store != nil {
		rec := storage.QuoteRecord{
			Symbol:    q.Symbol,
			Timestamp: q.Ts,
			Price:     q.Price,
			Change:    q.Change,
			ChangePct: q.ChangePct,
			Volume:    q.Volume,
		}
		if err := s.store.StoreQuote(rec); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist quote snapshot")
		}
	}

	return q, nil
}

// Price resolves just the latest trade price; it satisfies
// trade.PriceFunc for portfolio valuation.
func (s *Service) Price(ctx context.Context, symbol string) (float64, error) {
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// Bars returns recent bars for a symbol, Redis-cached per
// symbol+timeframe and written through to the BoltDB history cache.
func (s *Service) Bars(ctx context.Context, symbol string, timeframe Timeframe, lookback time.Duration, limit int) ([]Bar, error) {
	key := barsKey(symbol, timeframe)
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var bars []Bar
			if json.Unmarshal(data, &bars) == nil && len(bars) > 0 {
				s.countCacheHit()
				return bars, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.warnCacheDown(err, key)
		}
		s.countCacheMiss()
	}

	s.countRequest()
	bars, err := s.client.GetBars(ctx, symbol, timeframe, time.Now().Add(-lookback), limit)
	if err != nil {
		s.countError()
		// Upstream down: fall back to the local history cache.
		if s.store != nil {
			cached := s.barsFromStore(symbol, lookback)
			if len(cached) > 0 {
				log.Warn().Err(err).Str("symbol", symbol).Msg("serving bars from local cache after upstream failure")
				return cached, nil
			}
		}
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bar data for %s", symbol)
	}

	s.cacheSet(ctx, key, bars, s.barTTL)

	if s.store != nil {
		records := make([]storage.BarRecord, len(bars))
		for i, b := range bars {
			records[i] = storage.BarRecord{
				Symbol:    b.Symbol,
				Timestamp: b.Ts,
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			}
		}
		if err := s.store.StoreBars(records); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist bars")
		}
	}

	return bars, nil
}

func (s *Service) barsFromStore(symbol string, lookback time.Duration) []Bar {
	records, err := s.store.GetBars(symbol, time.Now().Add(-lookback), time.Now())
	if err != nil || len(records) == 0 {
		return nil
	}
	bars := make([]Bar, len(records))
	for i, r := range records {
		bars[i] = Bar{
			Symbol: r.Symbol,
			Ts:     r.Timestamp,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars
}

func (s *Service) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		s.warnCacheDown(err, key)
	}
}

// warnCacheDown reports the first Redis failure at warn level so a dead
// cache shows up in the log exactly once; later failures stay at debug.
func (s *Service) warnCacheDown(err error, key string) {
	s.warnOnce.Do(func() {
		log.Warn().Err(err).Msg("redis unavailable, serving market data without cache")
	})
	log.Debug().Err(err).Str("key", key).Msg("cache unavailable")
}

func (s *Service) countRequest() {
	if s.m != nil {
		s.m.MarketRequests.Inc()
	}
}

func (s *Service) countError() {
	if s.m != nil {
		s.m.MarketErrors.Inc()
	}
}

func (s *Service) countCacheHit() {
	if s.m != nil {
		s.m.CacheHits.Inc()
	}
}

func (s *Service) countCacheMiss() {
	if s.m != nil {
		s.m.CacheMisses.Inc()
	}
}
