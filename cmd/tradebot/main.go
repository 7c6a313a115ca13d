// Command tradebot runs the Telegram trading assistant: Bot API long
// polling, the alert engine, the optional market data stream and the
// health/metrics HTTP surfaces.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/amar01vidality/tradeai-companion/internal/ai"
	"github.com/amar01vidality/tradeai-companion/internal/alert"
	"github.com/amar01vidality/tradeai-companion/internal/cfg"
	"github.com/amar01vidality/tradeai-companion/internal/chart"
	"github.com/amar01vidality/tradeai-companion/internal/common"
	"github.com/amar01vidality/tradeai-companion/internal/database"
	"github.com/amar01vidality/tradeai-companion/internal/market"
	"github.com/amar01vidality/tradeai-companion/internal/metrics"
	"github.com/amar01vidality/tradeai-companion/internal/security"
	"github.com/amar01vidality/tradeai-companion/internal/storage"
	"github.com/amar01vidality/tradeai-companion/internal/telegram"
	"github.com/amar01vidality/tradeai-companion/internal/trade"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	configureLogging(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	db := initializeDatabase(ctx, c)
	if db != nil {
		defer db.Close()
	}

	rdb := initializeRedis(ctx, c)
	if rdb != nil {
		defer rdb.Close()
	}

	marketClient := market.NewClient(c.AlpacaKey, c.AlpacaSecret, c.AlpacaDataURL, c.RESTTimeout)
	markets := market.NewService(marketClient, rdb, store, m, c.QuoteCacheTTL, c.BarCacheTTL)

	aiClient := ai.NewClient(c.OpenAIKey, c.OpenAIModel, c.OpenAIBaseURL, c.RESTTimeout, m)
	if !aiClient.Configured() {
		log.Warn().Msg("no OpenAI key; /analyze runs indicator-only")
	}
	charts := chart.NewClient(c.ChartImgKey, common.DefaultChartImgURL, c.RESTTimeout)

	var trades *trade.Service
	var alerts *alert.Service
	if db != nil {
		trades = trade.NewService(db)
		alerts = alert.NewService(db)
	}

	limiter := security.NewRateLimiter(c.RateLimitPerMin)
	defer limiter.Stop()

	tg := telegram.NewClient(c.TelegramToken, common.DefaultTelegramAPIURL, c.PollTimeout+10*time.Second)
	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Telegram token rejected")
	}
	log.Info().Str("username", me.Username).Int64("bot_id", me.ID).Msg("authenticated with Telegram")

	bot := telegram.NewBot(tg, markets, aiClient, charts, trades, alerts, limiter, m)

	var wg sync.WaitGroup
	startPoller(ctx, &wg, tg, bot, c, m)
	if alerts != nil {
		engine := alert.NewEngine(alerts, markets, bot, m, c.AlertInterval)
		startAlertEngine(ctx, &wg, engine)
		startStream(ctx, &wg, c, m, engine)
	}

	startHealthServer(ctx, c, m)
	startMetricsServer(ctx, c)

	m.SetReady(true)
	waitForShutdown(ctx, cancel, &wg)
}

func configureLogging(c cfg.Settings) {
	if !c.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// initializeStorage opens the local market cache; the bot runs without it.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
		log.Warn().Err(err).Msg("cache dir unavailable, continuing without local cache")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("cache open failed, continuing without local cache")
		return nil
	}
	return store
}

// initializeDatabase connects and migrates; without it the journal and
// alert commands degrade to a notice.
func initializeDatabase(ctx context.Context, c cfg.Settings) *sql.DB {
	if c.DatabaseURL == "" {
		log.Warn().Msg("no database URL; trade journal and alerts disabled")
		return nil
	}
	db, err := database.Open(ctx, c.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("database unavailable; trade journal and alerts disabled")
		return nil
	}
	if err := database.RunMigrations(c.DatabaseURL); err != nil {
		log.Warn().Err(err).Msg("migrations failed; trade journal and alerts disabled")
		db.Close()
		return nil
	}
	return db
}

func initializeRedis(ctx context.Context, c cfg.Settings) *redis.Client {
	if c.RedisURL == "" {
		return nil
	}
	rdb, err := market.NewRedisClient(ctx, c.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without hot cache")
		return nil
	}
	return rdb
}

func startPoller(ctx context.Context, wg *sync.WaitGroup, tg *telegram.Client, bot *telegram.Bot, c cfg.Settings, m *metrics.Metrics) {
	poller := telegram.NewPoller(tg, bot, c.PollTimeout, m)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
}

func startAlertEngine(ctx context.Context, wg *sync.WaitGroup, engine *alert.Engine) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
}

// startStream consumes live trade ticks when streaming is enabled and
// feeds them to the alert engine.
func startStream(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, m *metrics.Metrics, engine *alert.Engine) {
	if !c.StreamEnabled || len(c.WatchSymbols) == 0 {
		return
	}
	stream := market.NewStream(c.AlpacaStreamURL, c.AlpacaKey, c.AlpacaSecret)
	ticks := make(chan market.Tick, 256)
	errs := make(chan error, 32)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := stream.Run(ctx, c.WatchSymbols, ticks, errs); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("market stream ended")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticks:
				m.TicksReceived.Inc()
				engine.CheckTick(ctx, tick)
			case err := <-errs:
				m.StreamReconnects.Inc()
				m.ErrorsTotal.Inc()
				log.Warn().Err(err).Msg("market stream error")
			}
		}
	}()
}

// startHealthServer serves the platform-facing port: banner, liveness and
// readiness.
func startHealthServer(ctx context.Context, c cfg.Settings, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "TradeAI Companion is running")
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if m.IsReady() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})

	startHTTPServer(ctx, fmt.Sprintf(":%d", c.Port), mux, "health server")
}

// startMetricsServer exposes Prometheus metrics on the internal port.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	startHTTPServer(ctx, fmt.Sprintf(":%d", c.MetricsPort), mux, "metrics server")
}

func startHTTPServer(ctx context.Context, addr string, handler http.Handler, name string) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("server", name).Msg("shutdown failed")
		}
	}()

	go func() {
		log.Info().Str("addr", addr).Str("server", name).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("server", name).Msg("server failed")
		}
	}()
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
