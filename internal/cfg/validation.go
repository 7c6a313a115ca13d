package cfg

import (
	"fmt"
	"strings"
	"time"
)

// validateSettings performs range and sanity checks on loaded configuration.
func validateSettings(settings *Settings) error {
	if settings.TelegramToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if !strings.Contains(settings.TelegramToken, ":") {
		return fmt.Errorf("telegram bot token must have the form <bot_id>:<secret>")
	}

	if settings.AlpacaBaseURL == "" || settings.AlpacaDataURL == "" {
		return fmt.Errorf("alpaca base and data URLs cannot be empty")
	}
	if settings.AlpacaStreamURL == "" {
		return fmt.Errorf("alpaca stream URL cannot be empty")
	}
	if settings.OpenAIBaseURL == "" {
		return fmt.Errorf("openai base URL cannot be empty")
	}

	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.Port == settings.MetricsPort {
		return fmt.Errorf("health port and metrics port must differ, both are %d", settings.Port)
	}

	if settings.PollTimeout < time.Second || settings.PollTimeout > 2*time.Minute {
		return fmt.Errorf("poll timeout must be between 1s and 2m, got %v", settings.PollTimeout)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}
	if settings.AlertInterval < 5*time.Second || settings.AlertInterval > time.Hour {
		return fmt.Errorf("alert check interval must be between 5s and 1h, got %v", settings.AlertInterval)
	}
	if settings.QuoteCacheTTL < time.Second || settings.QuoteCacheTTL > time.Hour {
		return fmt.Errorf("quote cache TTL must be between 1s and 1h, got %v", settings.QuoteCacheTTL)
	}
	if settings.BarCacheTTL < time.Second || settings.BarCacheTTL > 24*time.Hour {
		return fmt.Errorf("bar cache TTL must be between 1s and 24h, got %v", settings.BarCacheTTL)
	}

	if settings.RateLimitPerMin < 1 || settings.RateLimitPerMin > 600 {
		return fmt.Errorf("rate limit must be between 1 and 600 requests per minute, got %d", settings.RateLimitPerMin)
	}

	if settings.StreamEnabled && (settings.AlpacaKey == "" || settings.AlpacaSecret == "") {
		return fmt.Errorf("market stream requires alpaca API credentials")
	}

	for _, sym := range settings.WatchSymbols {
		if len(sym) == 0 || len(sym) > 10 {
			return fmt.Errorf("watch symbol %q must be between 1 and 10 characters", sym)
		}
	}

	return nil
}
