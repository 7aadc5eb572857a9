//go:build unit

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/src/datamodels"
)

const sampleConfig = `
app:
  locale: zh_CN
  dry_run: true
stocks:
  - symbol: QQQ
    name: Invesco QQQ Trust
    category: index
strategy:
  first_threshold: 0.9
telegram:
  retry_delay: 5s
providers:
  order: [csv, yahoo]
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromPathOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(writeConfig(t, sampleConfig), true)
	require.NoError(t, err)

	assert.Equal(t, "zh_CN", cfg.App.Locale)
	assert.True(t, cfg.App.DryRun)
	require.Len(t, cfg.Stocks, 1)
	assert.Equal(t, "QQQ", cfg.Stocks[0].Symbol)
	assert.Equal(t, datamodels.StockCategoryIndex, cfg.Stocks[0].Category)
	assert.Equal(t, 0.9, cfg.Strategy.FirstThreshold)
	assert.Equal(t, 0.80, cfg.Strategy.SecondThreshold)
	assert.Equal(t, 5*time.Second, cfg.Telegram.RetryDelay)
	assert.Equal(t, 3, cfg.Telegram.MaxRetries)
	assert.Equal(t, []string{"csv", "yahoo"}, cfg.Providers.Order)
	assert.Equal(t, "America/New_York", cfg.App.Timezone)
	assert.NoError(t, cfg.Validate(nil))
}

func TestLoadFromPathMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := LoadFromPath(missing, true)
	assert.Error(t, err)

	cfg, err := LoadFromPath(missing, false)
	require.NoError(t, err)
	assert.Equal(t, datamodels.DefaultBotConfig(), *cfg)
}

func TestLoadFromPathEnvOverrides(t *testing.T) {
	t.Setenv("STOCKBOT_STRATEGY_MOVING_AVERAGE_WINDOW", "200")
	t.Setenv("TIMEZONE", "Europe/London")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Strategy.MovingAverageWindow)
	assert.Equal(t, "Europe/London", cfg.App.Timezone)
}

func TestLoadValidatesSecrets(t *testing.T) {
	path := writeConfig(t, "app:\n  dry_run: false\n")
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, _, err := Load()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "demo")

	cfg, secrets, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", secrets.TelegramBotToken)
	assert.Equal(t, "-100200", secrets.TelegramChatID)
	assert.Equal(t, "demo", secrets.AlphaVantageAPIKey)
	assert.Len(t, cfg.Stocks, 8)
}

func TestStrategyDescriptions(t *testing.T) {
	descriptions, err := LoadStrategyDescriptions("")
	require.NoError(t, err)

	assert.Contains(t, descriptions.Description(datamodels.StrategyTypeMADeviation, "en"), "Signal 1")
	assert.Contains(t, descriptions.Description(datamodels.StrategyTypeMADeviation, "zh_CN"), "信号 1")
	assert.Equal(t, descriptions.Description(datamodels.StrategyTypeMADeviation, "en"),
		descriptions.Description(datamodels.StrategyTypeMADeviation, "de"))
	assert.Equal(t, "", descriptions.Description("unknown", "en"))
	assert.Equal(t, "MA120 Deviation", descriptions.Name(datamodels.StrategyTypeMADeviation))
	assert.Equal(t, "unknown", descriptions.Name("unknown"))
}

func TestStrategyDescriptionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "descriptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategies:\n  ma_deviation:\n    descriptions:\n      en: custom text\n"), 0644))

	descriptions, err := LoadStrategyDescriptions(path)
	require.NoError(t, err)
	assert.Equal(t, "custom text", descriptions.Description(datamodels.StrategyTypeMADeviation, "en"))

	_, err = LoadStrategyDescriptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	path, required := ConfigPath()
	assert.False(t, required)
	assert.Equal(t, "config.yaml", filepath.Base(path))

	t.Setenv("CONFIG_PATH", "/etc/stockbot/config.yaml")
	path, required = ConfigPath()
	assert.True(t, required)
	assert.Equal(t, "/etc/stockbot/config.yaml", path)
}
