//go:build unit

package datamodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSecrets() *Secrets {
	return &Secrets{TelegramBotToken: "123:abc", TelegramChatID: "42"}
}

func TestDefaultBotConfigIsValid(t *testing.T) {
	cfg := DefaultBotConfig()
	assert.NoError(t, cfg.Validate(validSecrets()))
	assert.Equal(t, []string{"SPY", "AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA"}, cfg.Symbols())
}

func TestBotConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *BotConfig)
		secrets *Secrets
		wantErr bool
	}{
		{"missing telegram secrets", func(c *BotConfig) {}, &Secrets{}, true},
		{"dry run without secrets", func(c *BotConfig) { c.App.DryRun = true }, nil, false},
		{"no stocks", func(c *BotConfig) { c.Stocks = nil }, validSecrets(), true},
		{"duplicate symbols", func(c *BotConfig) { c.Stocks = append(c.Stocks, StockInfo{Symbol: "SPY"}) }, validSecrets(), true},
		{"threshold above one", func(c *BotConfig) { c.Strategy.FirstThreshold = 1.2 }, validSecrets(), true},
		{"zero window", func(c *BotConfig) { c.Strategy.MovingAverageWindow = 0 }, validSecrets(), true},
		{"bad timezone", func(c *BotConfig) { c.App.Timezone = "Mars/Olympus" }, validSecrets(), true},
		{"unknown provider", func(c *BotConfig) { c.Providers.Order = []string{"bloomberg"} }, validSecrets(), true},
		{"min days above window", func(c *BotConfig) { c.Providers.MinDays = 500 }, validSecrets(), true},
		{"bad telegram url", func(c *BotConfig) { c.Telegram.BaseURL = "api.telegram.org" }, validSecrets(), true},
		{"bucket without object", func(c *BotConfig) { c.Storage.Bucket = "b"; c.Storage.Object = "" }, validSecrets(), true},
		{"inverted markers", func(c *BotConfig) { c.Notifications.ClosestToTriggerPct = -5 }, validSecrets(), true},
		{"bad metrics format", func(c *BotConfig) { c.MetricsWriter.FileWriter = true; c.MetricsWriter.Format = "xml" }, validSecrets(), true},
		{"csv only provider", func(c *BotConfig) { c.Providers.Order = []string{ProviderCsv} }, validSecrets(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBotConfig()
			tt.mutate(&cfg)
			err := cfg.Validate(tt.secrets)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAppConfigLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, "America/New_York", AppConfig{Timezone: "America/New_York"}.Location().String())
	assert.Equal(t, "UTC", AppConfig{Timezone: "nowhere"}.Location().String())
}
