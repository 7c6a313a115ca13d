package common

// Environment variable keys
const (
	EnvTelegramToken    = "TELEGRAM_API_TOKEN"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvAlpacaAPIKey     = "ALPACA_API_KEY"
	EnvAlpacaAPISecret  = "ALPACA_API_SECRET"
	EnvAlpacaBaseURL    = "ALPACA_BASE_URL"
	EnvAlpacaDataURL    = "ALPACA_DATA_URL"
	EnvAlpacaStreamURL  = "ALPACA_STREAM_URL"
	EnvChartImgAPIKey   = "CHART_IMG_API_KEY"
	EnvDatabaseURL      = "DATABASE_URL"
	EnvRedisURL         = "REDIS_URL"
	EnvPort             = "PORT"
	EnvMetricsPort      = "METRICS_PORT"
	EnvEnvironment      = "ENVIRONMENT"
	EnvDataPath         = "DATA_PATH"
	EnvLogPath          = "LOG_PATH"
	EnvConfigFile       = "CONFIG_FILE"
	EnvPollTimeout      = "POLL_TIMEOUT"
	EnvRESTTimeout      = "REST_TIMEOUT"
	EnvAlertInterval    = "ALERT_CHECK_INTERVAL"
	EnvRateLimitPerMin  = "RATE_LIMIT_PER_MIN"
	EnvWatchSymbols     = "WATCH_SYMBOLS"
	EnvOpenAIModel      = "OPENAI_MODEL"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvQuoteCacheTTL    = "QUOTE_CACHE_TTL"
	EnvBarCacheTTL      = "BAR_CACHE_TTL"
	EnvStreamEnabled    = "STREAM_ENABLED"
	EnvSetupRoot        = "SETUP_ROOT"
	EnvSetupEntryScript = "SETUP_ENTRY_SCRIPT"
)

// Configuration defaults
const (
	DefaultAlpacaBaseURL   = "https://paper-api.alpaca.markets"
	DefaultAlpacaDataURL   = "https://data.alpaca.markets"
	DefaultAlpacaStreamURL = "wss://stream.data.alpaca.markets/v2/iex"
	DefaultOpenAIBaseURL   = "https://api.openai.com"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultTelegramAPIURL  = "https://api.telegram.org"
	DefaultChartImgURL     = "https://api.chart-img.com"
	DefaultPort            = 8080
	DefaultMetricsPort     = 9090
	DefaultEnvironment     = "development"
	DefaultDataPath        = "qlib_data"
	DefaultLogPath         = "logs"
	DefaultRateLimitPerMin = 20
)

// Working directories created by the deployment bootstrap.
// Creation is idempotent; order only affects log readability.
var BootstrapDirs = []string{"logs", "data", "qlib_data", "temp"}
