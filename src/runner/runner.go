package runner

import (
	"context"
	"log/slog"
	"time"

	"stockbot/src/datamodels"
	"stockbot/src/metrics"
	"stockbot/src/storage"
	"stockbot/src/strategies"
	"stockbot/src/utils/errors"
	"stockbot/src/utils/general"
)

// DataSource produces the observation for one stock.
type DataSource interface {
	Fetch(ctx context.Context, stock datamodels.StockInfo) (datamodels.StockObservation, error)
}

type SummaryFormatter interface {
	FormatSummary(
		runTime time.Time,
		signals []datamodels.Signal,
		observations []datamodels.StockObservation,
		fetchErrors []datamodels.FetchError,
		issues []datamodels.SymbolIssue,
	) string
}

type Notifier interface {
	GetName() string
	Send(ctx context.Context, text string) bool
}

// RunResult aggregates everything a run produced. Per-symbol failures are values here,
// they never abort the run.
type RunResult struct {
	RunId        string
	RunTime      time.Time
	Duration     time.Duration
	Observations []datamodels.StockObservation
	Signals      []datamodels.Signal
	FetchErrors  []datamodels.FetchError
	Issues       []datamodels.SymbolIssue
	Resets       []string
	Delivered    bool
}

func (r *RunResult) HasFailures() bool {
	return len(r.FetchErrors) > 0 || len(r.Issues) > 0 || !r.Delivered
}

type RunnerBuilder struct {
	stocks        []datamodels.StockInfo
	dataSource    DataSource
	strategy      strategies.Strategy
	stateStore    storage.StateStore
	formatter     SummaryFormatter
	notifier      Notifier
	metricsWriter metrics.MetricsWriter
	clock         func() time.Time
	location      *time.Location
}

func NewRunnerBuilder() *RunnerBuilder {
	return &RunnerBuilder{
		clock:    time.Now,
		location: time.UTC,
	}
}

func (b *RunnerBuilder) WithStocks(stocks []datamodels.StockInfo) *RunnerBuilder {
	b.stocks = stocks
	return b
}

func (b *RunnerBuilder) WithDataSource(dataSource DataSource) *RunnerBuilder {
	b.dataSource = dataSource
	return b
}

func (b *RunnerBuilder) WithStrategy(strategy strategies.Strategy) *RunnerBuilder {
	b.strategy = strategy
	return b
}

func (b *RunnerBuilder) WithStateStore(stateStore storage.StateStore) *RunnerBuilder {
	b.stateStore = stateStore
	return b
}

func (b *RunnerBuilder) WithFormatter(formatter SummaryFormatter) *RunnerBuilder {
	b.formatter = formatter
	return b
}

func (b *RunnerBuilder) WithNotifier(notifier Notifier) *RunnerBuilder {
	b.notifier = notifier
	return b
}

func (b *RunnerBuilder) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *RunnerBuilder {
	b.metricsWriter = metricsWriter
	return b
}

func (b *RunnerBuilder) WithClock(clock func() time.Time) *RunnerBuilder {
	b.clock = clock
	return b
}

func (b *RunnerBuilder) WithLocation(location *time.Location) *RunnerBuilder {
	b.location = location
	return b
}

func (b *RunnerBuilder) Build() (*Runner, error) {
	if len(b.stocks) == 0 {
		return nil, errors.New("runner needs at least one stock")
	}
	if b.dataSource == nil {
		return nil, errors.New("runner needs a data source")
	}
	if b.strategy == nil {
		return nil, errors.New("runner needs a strategy")
	}
	if b.stateStore == nil {
		return nil, errors.New("runner needs a state store")
	}
	if b.formatter == nil {
		return nil, errors.New("runner needs a formatter")
	}
	if b.notifier == nil {
		return nil, errors.New("runner needs a notifier")
	}
	if b.metricsWriter == nil {
		b.metricsWriter = metrics.NewMultiMetricsWriter()
	}
	if b.location == nil {
		b.location = time.UTC
	}

	return &Runner{
		stocks:        b.stocks,
		dataSource:    b.dataSource,
		strategy:      b.strategy,
		stateStore:    b.stateStore,
		formatter:     b.formatter,
		notifier:      b.notifier,
		metricsWriter: b.metricsWriter,
		clock:         b.clock,
		location:      b.location,
	}, nil
}

// Runner executes one check over every configured stock and sends one summary.
type Runner struct {
	stocks        []datamodels.StockInfo
	dataSource    DataSource
	strategy      strategies.Strategy
	stateStore    storage.StateStore
	formatter     SummaryFormatter
	notifier      Notifier
	metricsWriter metrics.MetricsWriter
	clock         func() time.Time
	location      *time.Location
}

func (r *Runner) Run(ctx context.Context) *RunResult {
	runTime := r.clock().In(r.location)
	symbols := make([]string, 0, len(r.stocks))
	for _, stock := range r.stocks {
		symbols = append(symbols, stock.Symbol)
	}
	result := &RunResult{
		RunId:   general.NewRunId(runTime, symbols),
		RunTime: runTime,
	}

	slog.Info("Starting run", "run_id", result.RunId, "strategy", r.strategy.GetName(), "stocks", len(r.stocks))

	for _, stock := range r.stocks {
		if ctx.Err() != nil {
			slog.Warn("Run cancelled, skipping remaining stocks", "symbol", stock.Symbol, "error", ctx.Err())
			break
		}
		r.processStock(ctx, stock, result)
	}

	r.writeMetric(ctx, result, "", datamodels.MetricNameSignalsTotal, float64(len(result.Signals)))

	text := r.formatter.FormatSummary(runTime, result.Signals, result.Observations, result.FetchErrors, result.Issues)
	result.Delivered = r.notifier.Send(ctx, text)
	if !result.Delivered {
		slog.Error("Failed to deliver summary", "notifier", r.notifier.GetName())
	}

	result.Duration = r.clock().Sub(runTime)
	r.writeMetric(ctx, result, "", datamodels.MetricNameRunDurationSeconds, result.Duration.Seconds())

	slog.Info("Run complete",
		"run_id", result.RunId,
		"observations", len(result.Observations),
		"signals", len(result.Signals),
		"fetch_errors", len(result.FetchErrors),
		"issues", len(result.Issues),
		"delivered", result.Delivered,
		"duration", result.Duration)
	return result
}

func (r *Runner) processStock(ctx context.Context, stock datamodels.StockInfo, result *RunResult) {
	observation, err := r.dataSource.Fetch(ctx, stock)
	if err != nil {
		fetchError := toFetchError(stock, err)
		slog.Warn("Skipping stock without data", "symbol", stock.Symbol, "error", fetchError.Message)
		result.FetchErrors = append(result.FetchErrors, fetchError)
		r.writeMetric(ctx, result, stock.Symbol, datamodels.MetricNameFetchError, 1)
		return
	}
	result.Observations = append(result.Observations, observation)
	r.writeMetric(ctx, result, stock.Symbol, datamodels.MetricNamePrice, observation.CurrentPrice)
	r.writeMetric(ctx, result, stock.Symbol, datamodels.MetricNameMovingAverage, observation.MovingAverage)
	r.writeMetric(ctx, result, stock.Symbol, datamodels.MetricNameDeviationPct, observation.DeviationPct())

	state, loadErr := r.stateStore.Load(stock.Symbol)
	if loadErr != nil {
		result.Issues = append(result.Issues, datamodels.SymbolIssue{
			Symbol:  stock.Symbol,
			Message: issueMessage(loadErr),
		})
	}
	evaluation := r.strategy.Evaluate(observation, state)

	if evaluation.Warning != nil {
		result.Issues = append(result.Issues, datamodels.SymbolIssue{
			Symbol:  stock.Symbol,
			Message: issueMessage(evaluation.Warning),
		})
	}
	if evaluation.Reset {
		result.Resets = append(result.Resets, stock.Symbol)
	}

	newState := evaluation.State
	if evaluation.Signal != nil {
		signal := *evaluation.Signal
		newState = r.strategy.UpdateState(signal, newState)
		result.Signals = append(result.Signals, signal)
		r.writeMetric(ctx, result, stock.Symbol, datamodels.SignalMetricName(signal.SignalType), signal.CurrentPrice)
	}

	// a discarded record is replaced even when nothing fired, so it is reported once
	if !evaluation.Changed() && loadErr == nil {
		slog.Debug("No state change", "symbol", stock.Symbol, "deviation_pct", observation.DeviationPct())
		return
	}
	if err := r.stateStore.Save(newState); err != nil {
		slog.Error("Failed to persist state", "symbol", stock.Symbol,
			"signal_reported", evaluation.Signal != nil, "error", err)
		result.Issues = append(result.Issues, datamodels.SymbolIssue{
			Symbol:  stock.Symbol,
			Message: issueMessage(err),
		})
	}
}

func (r *Runner) writeMetric(ctx context.Context, result *RunResult, symbol string, name datamodels.MetricName, value float64) {
	err := r.metricsWriter.Write(ctx, datamodels.Metric{
		RunId:       result.RunId,
		Symbol:      symbol,
		MetricTime:  result.RunTime,
		MetricName:  name,
		MetricValue: value,
	})
	if err != nil {
		slog.Debug("Metric not written", "metric", name, "symbol", symbol, "error", err)
	}
}

func toFetchError(stock datamodels.StockInfo, err error) datamodels.FetchError {
	var fetchError *datamodels.FetchError
	if errors.As(err, &fetchError) {
		return *fetchError
	}
	return datamodels.FetchError{
		Symbol:   stock.Symbol,
		Name:     stock.Name,
		Provider: "unknown",
		Message:  err.Error(),
	}
}

// issueMessage maps the error taxonomy to text fit for the summary, without source locations.
func issueMessage(err error) string {
	switch {
	case errors.Is(err, errors.ErrInconsistentState):
		return "inconsistent state: signal 1 triggered without a recorded price, evaluation skipped"
	case errors.Is(err, errors.ErrPersistenceFailure):
		return "state could not be saved, the signal may repeat next run"
	case errors.Is(err, errors.ErrStateCorrupt):
		return "stored state was corrupt and has been reset"
	default:
		return err.Error()
	}
}
