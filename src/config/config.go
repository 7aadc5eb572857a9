package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
	"stockbot/src/utils/general"
)

const envPrefix = "STOCKBOT"

// Load reads config.yaml (or CONFIG_PATH) and the secrets from the environment.
// An optional .env file is loaded first.
func Load() (*datamodels.BotConfig, *datamodels.Secrets, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	configPath, required := ConfigPath()
	botConfig, err := LoadFromPath(configPath, required)
	if err != nil {
		return nil, nil, err
	}

	secrets, err := LoadSecrets()
	if err != nil {
		return nil, nil, err
	}

	if err := botConfig.Validate(secrets); err != nil {
		return nil, nil, errors.Wrap(err, "invalid config")
	}

	return botConfig, secrets, nil
}

// ConfigPath returns CONFIG_PATH, or config.yaml at the repo root. The bool reports
// whether the path was set explicitly, in which case the file must exist.
func ConfigPath() (string, bool) {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, true
	}
	return filepath.Join(general.GetRepoRoot(), "config.yaml"), false
}

// LoadFromPath reads one YAML file over the defaults. A missing file is an error only when required.
func LoadFromPath(configPath string, required bool) (*datamodels.BotConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// short names kept for deployments that predate the prefix
	_ = v.BindEnv("app.locale", envPrefix+"_APP_LOCALE", "LOCALE")
	_ = v.BindEnv("app.timezone", envPrefix+"_APP_TIMEZONE", "TIMEZONE")
	_ = v.BindEnv("storage.state_file", envPrefix+"_STORAGE_STATE_FILE", "STATE_FILE")

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configPath)
		}
		slog.Info("Loaded config file", "path", configPath)
	} else if required {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	} else {
		slog.Info("No config file found, using defaults", "path", configPath)
	}

	var botConfig datamodels.BotConfig
	if err := v.Unmarshal(&botConfig); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	return &botConfig, nil
}

func LoadSecrets() (*datamodels.Secrets, error) {
	var secrets datamodels.Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, errors.Wrap(err, "failed to read secrets from environment")
	}
	return &secrets, nil
}

func setDefaults(v *viper.Viper) {
	d := datamodels.DefaultBotConfig()

	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.locale", d.App.Locale)
	v.SetDefault("app.timezone", d.App.Timezone)
	v.SetDefault("app.dry_run", d.App.DryRun)

	stocks := make([]map[string]any, 0, len(d.Stocks))
	for _, stock := range d.Stocks {
		stocks = append(stocks, map[string]any{
			"symbol":   stock.Symbol,
			"name":     stock.Name,
			"category": string(stock.Category),
		})
	}
	v.SetDefault("stocks", stocks)

	v.SetDefault("strategy.type", d.Strategy.Type)
	v.SetDefault("strategy.moving_average_window", d.Strategy.MovingAverageWindow)
	v.SetDefault("strategy.first_threshold", d.Strategy.FirstThreshold)
	v.SetDefault("strategy.second_threshold", d.Strategy.SecondThreshold)
	v.SetDefault("strategy.first_position_size", d.Strategy.FirstPositionSize)
	v.SetDefault("strategy.second_position_size", d.Strategy.SecondPositionSize)

	v.SetDefault("providers.order", d.Providers.Order)
	v.SetDefault("providers.min_days", d.Providers.MinDays)
	v.SetDefault("providers.symbols_file", d.Providers.SymbolsFile)
	v.SetDefault("providers.yahoo.base_url", d.Providers.Yahoo.BaseURL)
	v.SetDefault("providers.yahoo.range", d.Providers.Yahoo.Range)
	v.SetDefault("providers.yahoo.timeout", d.Providers.Yahoo.Timeout)
	v.SetDefault("providers.alpha_vantage.base_url", d.Providers.AlphaVantage.BaseURL)
	v.SetDefault("providers.alpha_vantage.output_size", d.Providers.AlphaVantage.OutputSize)
	v.SetDefault("providers.alpha_vantage.requests_per_minute", d.Providers.AlphaVantage.RequestsPerMinute)
	v.SetDefault("providers.alpha_vantage.timeout", d.Providers.AlphaVantage.Timeout)
	v.SetDefault("providers.alpha_vantage.allow_partial", d.Providers.AlphaVantage.AllowPartial)
	v.SetDefault("providers.csv.data_dir", d.Providers.Csv.DataDir)
	v.SetDefault("providers.csv.timestamp_column", d.Providers.Csv.TimestampColumn)
	v.SetDefault("providers.csv.close_column", d.Providers.Csv.CloseColumn)
	v.SetDefault("providers.csv.has_header", d.Providers.Csv.HasHeader)

	v.SetDefault("storage.state_file", d.Storage.StateFile)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.object", d.Storage.Object)
	v.SetDefault("storage.mirror_timeout", d.Storage.MirrorTimeout)

	v.SetDefault("telegram.base_url", d.Telegram.BaseURL)
	v.SetDefault("telegram.parse_mode", d.Telegram.ParseMode)
	v.SetDefault("telegram.max_retries", d.Telegram.MaxRetries)
	v.SetDefault("telegram.retry_delay", d.Telegram.RetryDelay)
	v.SetDefault("telegram.timeout", d.Telegram.Timeout)

	v.SetDefault("notifications.approaching_trigger_pct", d.Notifications.ApproachingTriggerPct)
	v.SetDefault("notifications.closest_to_trigger_pct", d.Notifications.ClosestToTriggerPct)
	v.SetDefault("notifications.descriptions_path", d.Notifications.DescriptionsPath)

	v.SetDefault("metrics_writer.file_writer", d.MetricsWriter.FileWriter)
	v.SetDefault("metrics_writer.file_path", d.MetricsWriter.FilePath)
	v.SetDefault("metrics_writer.format", d.MetricsWriter.Format)
	v.SetDefault("metrics_writer.prometheus_textfile", d.MetricsWriter.PrometheusTextfile)
	v.SetDefault("metrics_writer.chart_path", d.MetricsWriter.ChartPath)
}
