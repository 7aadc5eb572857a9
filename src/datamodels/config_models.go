package datamodels

import (
	"fmt"
	"time"

	"stockbot/src/utils/errors"
	"stockbot/src/utils/general"
)

const (
	StrategyTypeMADeviation = "ma_deviation"

	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alpha_vantage"
	ProviderCsv          = "csv"
)

type BotConfig struct {
	App           AppConfig           `mapstructure:"app"`
	Stocks        []StockInfo         `mapstructure:"stocks"`
	Strategy      StrategyConfig      `mapstructure:"strategy"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	MetricsWriter MetricsWriterConfig `mapstructure:"metrics_writer"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Locale   string `mapstructure:"locale"`
	Timezone string `mapstructure:"timezone"`
	// DryRun prints notifications to stdout instead of sending them
	DryRun bool `mapstructure:"dry_run"`
}

// Location resolves the market timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StrategyConfig contains parameters for constructing a strategy
type StrategyConfig struct {
	Type                string  `mapstructure:"type"`
	MovingAverageWindow int     `mapstructure:"moving_average_window"`
	FirstThreshold      float64 `mapstructure:"first_threshold"`
	SecondThreshold     float64 `mapstructure:"second_threshold"`
	FirstPositionSize   float64 `mapstructure:"first_position_size"`
	SecondPositionSize  float64 `mapstructure:"second_position_size"`
}

func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Type:                StrategyTypeMADeviation,
		MovingAverageWindow: 120,
		FirstThreshold:      0.85,
		SecondThreshold:     0.80,
		FirstPositionSize:   0.20,
		SecondPositionSize:  0.20,
	}
}

func (s StrategyConfig) Validate() error {
	if s.Type == "" {
		return errors.New("strategy.type is required")
	}
	if s.MovingAverageWindow <= 0 {
		return errors.New("strategy.moving_average_window must be greater than 0")
	}
	for name, v := range map[string]float64{
		"first_threshold":      s.FirstThreshold,
		"second_threshold":     s.SecondThreshold,
		"first_position_size":  s.FirstPositionSize,
		"second_position_size": s.SecondPositionSize,
	} {
		if v <= 0 || v >= 1 {
			return errors.Newf("strategy.%s must be between 0 and 1, got %v", name, v)
		}
	}
	return nil
}

type ProvidersConfig struct {
	Order        []string           `mapstructure:"order"`
	MinDays      int                `mapstructure:"min_days"`
	SymbolsFile  string             `mapstructure:"symbols_file"`
	Yahoo        YahooConfig        `mapstructure:"yahoo"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alpha_vantage"`
	Csv          CsvProviderConfig  `mapstructure:"csv"`
}

type YahooConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Range   string        `mapstructure:"range"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AlphaVantageConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	OutputSize        string        `mapstructure:"output_size"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	// AllowPartial accepts fewer bars than the moving average window, down to providers.min_days
	AllowPartial bool `mapstructure:"allow_partial"`
}

type CsvProviderConfig struct {
	DataDir         string `mapstructure:"data_dir"`
	TimestampColumn int    `mapstructure:"timestamp_column"`
	CloseColumn     int    `mapstructure:"close_column"`
	HasHeader       bool   `mapstructure:"has_header"`
}

type StorageConfig struct {
	StateFile     string        `mapstructure:"state_file"`
	Bucket        string        `mapstructure:"bucket"`
	Object        string        `mapstructure:"object"`
	MirrorTimeout time.Duration `mapstructure:"mirror_timeout"`
}

type TelegramConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	ParseMode  string        `mapstructure:"parse_mode"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type NotificationsConfig struct {
	ApproachingTriggerPct float64 `mapstructure:"approaching_trigger_pct"`
	ClosestToTriggerPct   float64 `mapstructure:"closest_to_trigger_pct"`
	DescriptionsPath      string  `mapstructure:"descriptions_path"`
}

type MetricsWriterConfig struct {
	FileWriter         bool   `mapstructure:"file_writer"`
	FilePath           string `mapstructure:"file_path"`
	Format             string `mapstructure:"format"`
	PrometheusTextfile string `mapstructure:"prometheus_textfile"`
	ChartPath          string `mapstructure:"chart_path"`
}

// Secrets come from the environment only.
type Secrets struct {
	TelegramBotToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID     string `envconfig:"TELEGRAM_CHAT_ID"`
	AlphaVantageAPIKey string `envconfig:"ALPHA_VANTAGE_API_KEY"`
}

func (c *BotConfig) Validate(secrets *Secrets) error {
	if len(c.Stocks) == 0 {
		return errors.New("stocks are required")
	}
	symbols := make([]string, 0, len(c.Stocks))
	for _, stock := range c.Stocks {
		if stock.Symbol == "" {
			return errors.New("stock symbol is required")
		}
		symbols = append(symbols, stock.Symbol)
	}
	if !general.NoDuplicateItemsInSlice(symbols) {
		return errors.New("stock symbols must be unique")
	}

	if err := c.Strategy.Validate(); err != nil {
		return err
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return errors.Wrapf(err, "app.timezone %q", c.App.Timezone)
	}

	if len(c.Providers.Order) == 0 {
		return errors.New("providers.order is required")
	}
	known := []string{ProviderYahoo, ProviderAlphaVantage, ProviderCsv}
	for _, name := range c.Providers.Order {
		if !general.ItemInSlice(known, name) {
			return errors.Newf("unknown provider %q", name)
		}
	}
	if c.Providers.MinDays <= 0 || c.Providers.MinDays > c.Strategy.MovingAverageWindow {
		return errors.Newf("providers.min_days must be in (0, %d]", c.Strategy.MovingAverageWindow)
	}
	for name, rawURL := range map[string]string{
		"providers.yahoo.base_url":         c.Providers.Yahoo.BaseURL,
		"providers.alpha_vantage.base_url": c.Providers.AlphaVantage.BaseURL,
		"telegram.base_url":                c.Telegram.BaseURL,
	} {
		if ok, msg := general.IsValidURL(rawURL); !ok {
			return errors.Newf("%s: %s", name, msg)
		}
	}

	if c.Storage.StateFile == "" {
		return errors.New("storage.state_file is required")
	}
	if c.Storage.Bucket != "" && c.Storage.Object == "" {
		return errors.New("storage.object is required when storage.bucket is set")
	}

	if c.Telegram.MaxRetries < 1 {
		return errors.New("telegram.max_retries must be at least 1")
	}

	if c.Notifications.ClosestToTriggerPct > c.Notifications.ApproachingTriggerPct {
		return errors.New("notifications.closest_to_trigger_pct must not be above approaching_trigger_pct")
	}

	if c.MetricsWriter.FileWriter && c.MetricsWriter.Format != "csv" && c.MetricsWriter.Format != "json" {
		return errors.Newf("metrics_writer.format must be csv or json, got %q", c.MetricsWriter.Format)
	}

	if !c.App.DryRun {
		if secrets == nil || secrets.TelegramBotToken == "" || secrets.TelegramChatID == "" {
			return errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required unless app.dry_run is set")
		}
	}
	return nil
}

func (c *BotConfig) Symbols() []string {
	symbols := make([]string, 0, len(c.Stocks))
	for _, stock := range c.Stocks {
		symbols = append(symbols, stock.Symbol)
	}
	return symbols
}

func (c *BotConfig) String() string {
	return fmt.Sprintf("stocks=%v strategy=%s window=%d providers=%v state_file=%s dry_run=%t",
		c.Symbols(), c.Strategy.Type, c.Strategy.MovingAverageWindow, c.Providers.Order, c.Storage.StateFile, c.App.DryRun)
}

// DefaultBotConfig is the configuration used when no config file overrides a key.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		App: AppConfig{
			Name:     "stockbot",
			Locale:   "en",
			Timezone: "America/New_York",
		},
		Stocks:   DefaultStocks(),
		Strategy: DefaultStrategyConfig(),
		Providers: ProvidersConfig{
			Order:   []string{ProviderYahoo, ProviderAlphaVantage},
			MinDays: 30,
			Yahoo: YahooConfig{
				BaseURL: "https://query1.finance.yahoo.com",
				Range:   "1y",
				Timeout: 10 * time.Second,
			},
			AlphaVantage: AlphaVantageConfig{
				BaseURL:           "https://www.alphavantage.co",
				OutputSize:        "compact",
				RequestsPerMinute: 5,
				Timeout:           10 * time.Second,
				AllowPartial:      true,
			},
			Csv: CsvProviderConfig{
				DataDir:         "data",
				TimestampColumn: 0,
				CloseColumn:     1,
				HasHeader:       true,
			},
		},
		Storage: StorageConfig{
			StateFile:     "signals.json",
			Object:        "state/signals.json",
			MirrorTimeout: 30 * time.Second,
		},
		Telegram: TelegramConfig{
			BaseURL:    "https://api.telegram.org",
			ParseMode:  "Markdown",
			MaxRetries: 3,
			RetryDelay: 2 * time.Second,
			Timeout:    10 * time.Second,
		},
		Notifications: NotificationsConfig{
			ApproachingTriggerPct: -10,
			ClosestToTriggerPct:   -12,
		},
		MetricsWriter: MetricsWriterConfig{
			FilePath: "reports",
			Format:   "csv",
		},
	}
}
