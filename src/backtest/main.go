package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stockbot/src/config"
	"stockbot/src/datamodels"
	"stockbot/src/metrics"
	"stockbot/src/notifications"
	"stockbot/src/providers"
	"stockbot/src/storage"
	"stockbot/src/strategies"
)

// Replays the configured strategy over a CSV of daily closes.
//
//	go run ./src/backtest -symbol AAPL [-csv data/AAPL.csv] [-config config.yaml] [-capital 10000]
func main() {
	configPath := flag.String("config", "", "config file (default: CONFIG_PATH or config.yaml at repo root)")
	symbol := flag.String("symbol", "", "symbol to replay")
	csvPath := flag.String("csv", "", "CSV of closes (default: <providers.csv.data_dir>/<SYMBOL>.csv)")
	capital := flag.Float64("capital", 10000, "capital allocated to the symbol")
	showSignals := flag.Bool("signals", false, "print each signal as its notification text")
	flag.Parse()

	if *symbol == "" {
		slog.Error("No symbol provided")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	required := *configPath != ""
	if !required {
		*configPath, required = config.ConfigPath()
	}
	botConfig, err := config.LoadFromPath(*configPath, required)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	stock := findStock(botConfig, *symbol)
	csvProvider := providers.NewCsvProvider(botConfig.Providers.Csv, botConfig.App.Location())
	if *csvPath == "" {
		*csvPath = csvProvider.FilePath(stock.Symbol)
	}
	slog.Info("Using CSV file", "path", *csvPath)

	bars, err := csvProvider.ReadFile(ctx, *csvPath)
	if err != nil {
		slog.Error("Failed to read closes", "error", err)
		os.Exit(1)
	}

	strategy, err := strategies.StrategyFromConfig(&botConfig.Strategy)
	if err != nil {
		slog.Error("Failed to build strategy", "error", err)
		os.Exit(1)
	}

	metricsWriter, err := metrics.BuildMetricsWriter(&botConfig.MetricsWriter, botConfig.Strategy.FirstThreshold)
	if err != nil {
		slog.Error("Failed to build metrics writer", "error", err)
		os.Exit(1)
	}
	defer metricsWriter.Close()

	replayer, err := NewReplayerBuilder().
		WithStrategy(strategy).
		WithStateStore(storage.NewMemoryStateStore()).
		WithWindow(botConfig.Strategy.MovingAverageWindow).
		WithCapital(*capital).
		WithMetricsWriter(metricsWriter).
		Build()
	if err != nil {
		slog.Error("Failed to build replayer", "error", err)
		os.Exit(1)
	}

	report, err := replayer.Replay(ctx, stock, bars)
	if err != nil {
		slog.Error("Replay failed", "error", err)
		os.Exit(1)
	}

	if *showSignals {
		formatter, err := notifications.BuildMessageFormatter(botConfig)
		if err != nil {
			slog.Error("Failed to build message formatter", "error", err)
			os.Exit(1)
		}
		printSignals(ctx, notifications.NewConsoleNotifier(os.Stdout), formatter, report.Signals)
	}

	slog.Info("Replay complete",
		"symbol", report.Symbol,
		"bars", report.Bars,
		"evaluated", report.Evaluated,
		"signals", len(report.Signals),
		"resets", len(report.Resets),
		"warnings", report.Warnings,
		"invested", report.Invested,
		"market_value", report.MarketValue(),
		"return_pct", report.ReturnPct())
}

type signalFormatter interface {
	FormatSignal(signal datamodels.Signal) string
}

// printSignals renders every replayed signal the way a live run would report it.
func printSignals(ctx context.Context, notifier notifications.Notifier, formatter signalFormatter, signals []datamodels.Signal) int {
	printed := 0
	for _, signal := range signals {
		if notifier.Send(ctx, formatter.FormatSignal(signal)) {
			printed++
		}
	}
	return printed
}

func findStock(botConfig *datamodels.BotConfig, symbol string) datamodels.StockInfo {
	for _, stock := range botConfig.Stocks {
		if strings.EqualFold(stock.Symbol, symbol) {
			return stock
		}
	}
	return datamodels.StockInfo{Symbol: strings.ToUpper(symbol), Name: strings.ToUpper(symbol)}
}
