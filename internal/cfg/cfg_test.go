package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amar01vidality/tradeai-companion/internal/common"
)

const testToken = "123456:test-secret"

func clearBotEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		common.EnvTelegramToken, common.EnvOpenAIKey, common.EnvAlpacaAPIKey,
		common.EnvAlpacaAPISecret, common.EnvAlpacaBaseURL, common.EnvAlpacaDataURL,
		common.EnvAlpacaStreamURL, common.EnvChartImgAPIKey, common.EnvDatabaseURL,
		common.EnvRedisURL, common.EnvPort, common.EnvMetricsPort, common.EnvEnvironment,
		common.EnvDataPath, common.EnvConfigFile, common.EnvPollTimeout,
		common.EnvRESTTimeout, common.EnvAlertInterval, common.EnvRateLimitPerMin,
		common.EnvWatchSymbols, common.EnvOpenAIModel, common.EnvStreamEnabled,
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearBotEnv(t)
	t.Setenv(common.EnvTelegramToken, testToken)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testToken, s.TelegramToken)
	assert.Equal(t, common.DefaultPort, s.Port)
	assert.Equal(t, common.DefaultMetricsPort, s.MetricsPort)
	assert.Equal(t, common.DefaultAlpacaDataURL, s.AlpacaDataURL)
	assert.Equal(t, 30*time.Second, s.PollTimeout)
	assert.Equal(t, common.DefaultOpenAIModel, s.OpenAIModel)
	assert.False(t, s.IsProduction())
}

func TestLoadFromEnv_MissingToken(t *testing.T) {
	clearBotEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), common.EnvTelegramToken)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearBotEnv(t)
	t.Setenv(common.EnvTelegramToken, testToken)
	t.Setenv(common.EnvPort, "9000")
	t.Setenv(common.EnvEnvironment, "production")
	t.Setenv(common.EnvWatchSymbols, "aapl, msft,TSLA")
	t.Setenv(common.EnvAlertInterval, "45s")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, s.Port)
	assert.True(t, s.IsProduction())
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, s.WatchSymbols)
	assert.Equal(t, 45*time.Second, s.AlertInterval)
}

func TestLoadFromYAML(t *testing.T) {
	clearBotEnv(t)

	yamlContent := `
telegram:
  token: "111:yaml-secret"
  pollTimeout: "20s"
openai:
  model: "gpt-4o"
alpaca:
  key: "ak"
  secret: "sk"
alerts:
  checkInterval: "2m"
  watchSymbols: ["AAPL", "NVDA"]
system:
  port: 8888
  metricsPort: 9999
  environment: "staging"
  rateLimitPerMin: 30
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
	t.Setenv(common.EnvConfigFile, path)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "111:yaml-secret", s.TelegramToken)
	assert.Equal(t, 8888, s.Port)
	assert.Equal(t, 9999, s.MetricsPort)
	assert.Equal(t, 20*time.Second, s.PollTimeout)
	assert.Equal(t, 2*time.Minute, s.AlertInterval)
	assert.Equal(t, 30, s.RateLimitPerMin)
	assert.Equal(t, []string{"AAPL", "NVDA"}, s.WatchSymbols)
	assert.Equal(t, "gpt-4o", s.OpenAIModel)
}

func TestLoadFromYAML_EnvOverridesFile(t *testing.T) {
	clearBotEnv(t)

	yamlContent := `
telegram:
  token: "111:yaml-secret"
system:
  port: 8888
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
	t.Setenv(common.EnvConfigFile, path)
	t.Setenv(common.EnvTelegramToken, testToken)
	t.Setenv(common.EnvPort, "7777")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testToken, s.TelegramToken)
	assert.Equal(t, 7777, s.Port)
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearBotEnv(t)
	t.Setenv(common.EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	require.Error(t, err)
}
