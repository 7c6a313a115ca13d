package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/amar01vidality/tradeai-companion/internal/common"
)

type Settings struct {
	TelegramToken string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	AlpacaKey       string
	AlpacaSecret    string
	AlpacaBaseURL   string
	AlpacaDataURL   string
	AlpacaStreamURL string

	ChartImgKey string

	DatabaseURL string
	RedisURL    string
	DataPath    string
	LogPath     string

	Port        int
	MetricsPort int
	Environment string

	WatchSymbols  []string
	PollTimeout   time.Duration
	RESTTimeout   time.Duration
	AlertInterval time.Duration
	QuoteCacheTTL time.Duration
	BarCacheTTL   time.Duration

	RateLimitPerMin int
	StreamEnabled   bool
}

type ConfigFile struct {
	Telegram struct {
		Token       string `yaml:"token"`
		PollTimeout string `yaml:"pollTimeout"`
	} `yaml:"telegram"`

	OpenAI struct {
		Key     string `yaml:"key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	Alpaca struct {
		Key       string `yaml:"key"`
		Secret    string `yaml:"secret"`
		BaseURL   string `yaml:"baseURL"`
		DataURL   string `yaml:"dataURL"`
		StreamURL string `yaml:"streamURL"`
	} `yaml:"alpaca"`

	Chart struct {
		Key string `yaml:"key"`
	} `yaml:"chart"`

	Alerts struct {
		CheckInterval string   `yaml:"checkInterval"`
		WatchSymbols  []string `yaml:"watchSymbols"`
		Stream        bool     `yaml:"stream"`
	} `yaml:"alerts"`

	System struct {
		DatabaseURL     string `yaml:"databaseURL"`
		RedisURL        string `yaml:"redisURL"`
		DataPath        string `yaml:"dataPath"`
		LogPath         string `yaml:"logPath"`
		Port            int    `yaml:"port"`
		MetricsPort     int    `yaml:"metricsPort"`
		Environment     string `yaml:"environment"`
		RESTTimeout     string `yaml:"restTimeout"`
		QuoteCacheTTL   string `yaml:"quoteCacheTTL"`
		BarCacheTTL     string `yaml:"barCacheTTL"`
		RateLimitPerMin int    `yaml:"rateLimitPerMin"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Best-effort .env for local development; deployments inject real env.
	_ = godotenv.Load()

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		TelegramToken:   getEnvOrDefault(common.EnvTelegramToken, config.Telegram.Token),
		OpenAIKey:       getEnvOrDefault(common.EnvOpenAIKey, config.OpenAI.Key),
		OpenAIModel:     firstNonEmpty(os.Getenv(common.EnvOpenAIModel), config.OpenAI.Model, common.DefaultOpenAIModel),
		OpenAIBaseURL:   firstNonEmpty(os.Getenv(common.EnvOpenAIBaseURL), config.OpenAI.BaseURL, common.DefaultOpenAIBaseURL),
		AlpacaKey:       getEnvOrDefault(common.EnvAlpacaAPIKey, config.Alpaca.Key),
		AlpacaSecret:    getEnvOrDefault(common.EnvAlpacaAPISecret, config.Alpaca.Secret),
		AlpacaBaseURL:   firstNonEmpty(os.Getenv(common.EnvAlpacaBaseURL), config.Alpaca.BaseURL, common.DefaultAlpacaBaseURL),
		AlpacaDataURL:   firstNonEmpty(os.Getenv(common.EnvAlpacaDataURL), config.Alpaca.DataURL, common.DefaultAlpacaDataURL),
		AlpacaStreamURL: firstNonEmpty(os.Getenv(common.EnvAlpacaStreamURL), config.Alpaca.StreamURL, common.DefaultAlpacaStreamURL),
		ChartImgKey:     getEnvOrDefault(common.EnvChartImgAPIKey, config.Chart.Key),
		DatabaseURL:     getEnvOrDefault(common.EnvDatabaseURL, config.System.DatabaseURL),
		RedisURL:        getEnvOrDefault(common.EnvRedisURL, config.System.RedisURL),
		DataPath:        firstNonEmpty(os.Getenv(common.EnvDataPath), config.System.DataPath, common.DefaultDataPath),
		LogPath:         firstNonEmpty(os.Getenv(common.EnvLogPath), config.System.LogPath, common.DefaultLogPath),
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.System.Port, common.DefaultPort),
		MetricsPort:     getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		Environment:     firstNonEmpty(os.Getenv(common.EnvEnvironment), config.System.Environment, common.DefaultEnvironment),
		WatchSymbols:    getSymbolsFromEnvOrConfig(config.Alerts.WatchSymbols),
		PollTimeout:     parseDurationOr(config.Telegram.PollTimeout, getDurationOrDefault(common.EnvPollTimeout, 30*time.Second)),
		RESTTimeout:     parseDurationOr(config.System.RESTTimeout, getDurationOrDefault(common.EnvRESTTimeout, 10*time.Second)),
		AlertInterval:   parseDurationOr(config.Alerts.CheckInterval, getDurationOrDefault(common.EnvAlertInterval, time.Minute)),
		QuoteCacheTTL:   parseDurationOr(config.System.QuoteCacheTTL, getDurationOrDefault(common.EnvQuoteCacheTTL, 30*time.Second)),
		BarCacheTTL:     parseDurationOr(config.System.BarCacheTTL, getDurationOrDefault(common.EnvBarCacheTTL, 5*time.Minute)),
		RateLimitPerMin: getIntFromEnvOrConfig(common.EnvRateLimitPerMin, config.System.RateLimitPerMin, common.DefaultRateLimitPerMin),
		StreamEnabled:   getBoolFromEnvOrConfig(common.EnvStreamEnabled, config.Alerts.Stream),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	token, err := getEnvRequired(common.EnvTelegramToken)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		TelegramToken:   token,
		OpenAIKey:       os.Getenv(common.EnvOpenAIKey), // optional, /analyze degrades without it
		OpenAIModel:     getEnvOrDefault(common.EnvOpenAIModel, common.DefaultOpenAIModel),
		OpenAIBaseURL:   getEnvOrDefault(common.EnvOpenAIBaseURL, common.DefaultOpenAIBaseURL),
		AlpacaKey:       os.Getenv(common.EnvAlpacaAPIKey),
		AlpacaSecret:    os.Getenv(common.EnvAlpacaAPISecret),
		AlpacaBaseURL:   getEnvOrDefault(common.EnvAlpacaBaseURL, common.DefaultAlpacaBaseURL),
		AlpacaDataURL:   getEnvOrDefault(common.EnvAlpacaDataURL, common.DefaultAlpacaDataURL),
		AlpacaStreamURL: getEnvOrDefault(common.EnvAlpacaStreamURL, common.DefaultAlpacaStreamURL),
		ChartImgKey:     os.Getenv(common.EnvChartImgAPIKey),
		DatabaseURL:     os.Getenv(common.EnvDatabaseURL), // optional, trade/alert commands need it
		RedisURL:        os.Getenv(common.EnvRedisURL),    // optional, cache degrades to REST
		DataPath:        getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		LogPath:         getEnvOrDefault(common.EnvLogPath, common.DefaultLogPath),
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		MetricsPort:     getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		Environment:     getEnvOrDefault(common.EnvEnvironment, common.DefaultEnvironment),
		WatchSymbols:    splitOrDefault(os.Getenv(common.EnvWatchSymbols), nil),
		PollTimeout:     getDurationOrDefault(common.EnvPollTimeout, 30*time.Second),
		RESTTimeout:     getDurationOrDefault(common.EnvRESTTimeout, 10*time.Second),
		AlertInterval:   getDurationOrDefault(common.EnvAlertInterval, time.Minute),
		QuoteCacheTTL:   getDurationOrDefault(common.EnvQuoteCacheTTL, 30*time.Second),
		BarCacheTTL:     getDurationOrDefault(common.EnvBarCacheTTL, 5*time.Minute),
		RateLimitPerMin: getIntOrDefault(common.EnvRateLimitPerMin, common.DefaultRateLimitPerMin),
		StreamEnabled:   getBoolOrDefault(common.EnvStreamEnabled, false),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// IsProduction reports whether the bot runs with the production environment tag.
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("required environment variable %s is missing", key)
	}
	return v, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseDurationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getSymbolsFromEnvOrConfig(configSymbols []string) []string {
	if env := os.Getenv(common.EnvWatchSymbols); env != "" {
		return splitOrDefault(env, configSymbols)
	}
	return configSymbols
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}
