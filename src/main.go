package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockbot/src/config"
	"stockbot/src/datamodels"
	"stockbot/src/metrics"
	"stockbot/src/notifications"
	"stockbot/src/providers"
	"stockbot/src/runner"
	"stockbot/src/storage"
	"stockbot/src/strategies"
	"stockbot/src/utils/errors"
	"stockbot/src/version"
)

const fatalNotifyTimeout = 30 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	initializeLogging()
	os.Exit(run())
}

// run executes one check and returns the process exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Ramping up stockbot", "version", version.Summary())

	botConfig, secrets, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		notifyFatal(botConfig, secrets, err)
		return 1
	}
	slog.Info("Loaded config", "config", botConfig.String())

	stockRunner, closeFn, err := buildRunner(ctx, botConfig, secrets)
	if err != nil {
		slog.Error("Failed to build components", "error", err)
		notifyFatal(botConfig, secrets, err)
		return 1
	}
	defer closeFn()

	result := stockRunner.Run(ctx)
	if result.HasFailures() {
		slog.Warn("Run finished with failures",
			"fetch_errors", len(result.FetchErrors),
			"issues", len(result.Issues),
			"delivered", result.Delivered)
	}
	return 0
}

func buildRunner(ctx context.Context, botConfig *datamodels.BotConfig, secrets *datamodels.Secrets) (*runner.Runner, func(), error) {
	location := botConfig.App.Location()

	strategy, err := strategies.StrategyFromConfig(&botConfig.Strategy)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build strategy")
	}

	fetcher, err := providers.BuildFetcherFromConfig(&botConfig.Providers, secrets,
		botConfig.Strategy.MovingAverageWindow, location)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build data fetcher")
	}

	stateStore, err := storage.BuildStateStore(ctx, &botConfig.Storage)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build state store")
	}

	formatter, err := notifications.BuildMessageFormatter(botConfig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build message formatter")
	}

	metricsWriter, err := metrics.BuildMetricsWriter(&botConfig.MetricsWriter, botConfig.Strategy.FirstThreshold)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build metrics writer")
	}
	closeFn := func() {
		if err := metricsWriter.Close(); err != nil {
			slog.Error("Failed to close metrics writer", "error", err)
		}
	}

	stockRunner, err := runner.NewRunnerBuilder().
		WithStocks(botConfig.Stocks).
		WithDataSource(fetcher).
		WithStrategy(strategy).
		WithStateStore(stateStore).
		WithFormatter(formatter).
		WithNotifier(notifications.BuildNotifier(botConfig, secrets)).
		WithMetricsWriter(metricsWriter).
		WithLocation(location).
		Build()
	if err != nil {
		closeFn()
		return nil, nil, errors.Wrap(err, "failed to build runner")
	}
	return stockRunner, closeFn, nil
}

// notifyFatal makes a best effort to report a run-ending error through the configured notifier.
// It uses its own context so an interrupted run can still report.
func notifyFatal(botConfig *datamodels.BotConfig, secrets *datamodels.Secrets, runErr error) {
	if botConfig == nil {
		defaults := datamodels.DefaultBotConfig()
		botConfig = &defaults
	}
	if secrets == nil {
		loaded, err := config.LoadSecrets()
		if err != nil {
			slog.Error("Cannot send error notification without secrets", "error", err)
			return
		}
		secrets = loaded
	}

	formatter, err := notifications.BuildMessageFormatter(botConfig)
	if err != nil {
		slog.Error("Cannot format error notification", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fatalNotifyTimeout)
	defer cancel()
	notifier := notifications.BuildNotifier(botConfig, secrets)
	if !notifier.Send(ctx, formatter.FormatError(runErr.Error())) {
		slog.Error("Failed to send error notification", "notifier", notifier.GetName())
	}
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
