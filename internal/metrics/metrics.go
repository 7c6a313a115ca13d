// Package metrics provides Prometheus metrics collection for the trading
// companion bot. It defines counters, gauges and histograms covering the
// Telegram update pipeline, market data access, alerting and AI analysis,
// all exposed on the health server's /metrics endpoint.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Telegram pipeline
	UpdatesReceived prometheus.Counter   // Total Telegram updates received
	CommandsTotal   *prometheus.CounterVec // Commands handled, labeled by command name
	CommandErrors   prometheus.Counter   // Handler failures answered with an error reply
	MessagesSent    prometheus.Counter   // Outgoing Telegram messages and photos
	RateLimited     prometheus.Counter   // Updates rejected by the per-user rate limiter
	PollRestarts    prometheus.Counter   // Long-poll loop restarts after transport errors

	// Market data
	MarketRequests  prometheus.Counter   // Upstream market data API calls
	MarketErrors    prometheus.Counter   // Upstream market data failures
	CacheHits       prometheus.Counter   // Quote/bar cache hits (Redis)
	CacheMisses     prometheus.Counter   // Quote/bar cache misses
	StreamReconnects prometheus.Counter  // Market stream reconnections
	TicksReceived   prometheus.Counter   // Ticks received from the market stream

	// Alerts and trades
	AlertsActive    prometheus.Gauge     // Currently active price alerts
	AlertsTriggered prometheus.Counter   // Alerts that fired and were delivered
	TradesRecorded  prometheus.Counter   // Paper trades written to the database

	// AI analysis
	AIRequests prometheus.Counter   // OpenAI completion requests
	AIFailures prometheus.Counter   // OpenAI request failures
	AILatency  prometheus.Histogram // OpenAI request latency in seconds

	// System
	Ready       prometheus.Gauge   // 1 when the bot is ready to serve
	ErrorsTotal prometheus.Counter // Total errors encountered

	ready atomic.Bool // mirrors Ready for the /ready handler
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows isolated metric collection in tests without affecting the
// global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		UpdatesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_updates_received_total",
			Help: "Total number of Telegram updates received",
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "commands_total",
			Help: "Total number of bot commands handled",
		}, []string{"command"}),
		CommandErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "command_errors_total",
			Help: "Total number of command handler failures",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_messages_sent_total",
			Help: "Total number of outgoing Telegram messages",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of updates rejected by the rate limiter",
		}),
		PollRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "poll_restarts_total",
			Help: "Total number of long-poll loop restarts",
		}),
		MarketRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "market_requests_total",
			Help: "Total number of upstream market data requests",
		}),
		MarketErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "market_errors_total",
			Help: "Total number of upstream market data failures",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "market_cache_hits_total",
			Help: "Total number of market data cache hits",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "market_cache_misses_total",
			Help: "Total number of market data cache misses",
		}),
		StreamReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_reconnects_total",
			Help: "Total number of market stream reconnections",
		}),
		TicksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "stream_ticks_received_total",
			Help: "Total number of ticks received from the market stream",
		}),
		AlertsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alerts_active",
			Help: "Number of currently active price alerts",
		}),
		AlertsTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total number of price alerts triggered",
		}),
		TradesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "trades_recorded_total",
			Help: "Total number of paper trades recorded",
		}),
		AIRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI completion requests",
		}),
		AIFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_failures_total",
			Help: "Total number of AI completion failures",
		}),
		AILatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_latency_seconds",
			Help:    "AI completion request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 20.0, 30.0},
		}),
		Ready: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_ready",
			Help: "1 when the bot is ready to serve requests",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// CommandHandled records a handled command by name.
func (m *Metrics) CommandHandled(command string) {
	m.CommandsTotal.WithLabelValues(command).Inc()
}

// SetReady flips the readiness gauge.
func (m *Metrics) SetReady(ready bool) {
	m.ready.Store(ready)
	if ready {
		m.Ready.Set(1)
		return
	}
	m.Ready.Set(0)
}

// IsReady reports the current readiness state.
func (m *Metrics) IsReady() bool {
	return m.ready.Load()
}
