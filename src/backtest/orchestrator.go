package main

import (
	"context"
	"log/slog"
	"time"

	"stockbot/src/datamodels"
	"stockbot/src/indicators"
	"stockbot/src/metrics"
	"stockbot/src/storage"
	"stockbot/src/strategies"
	"stockbot/src/utils/errors"
	"stockbot/src/utils/general"
)

// ReplayReport summarizes one symbol replayed bar by bar, buying the signal's position size
// of the allocated capital at each signal price.
type ReplayReport struct {
	Symbol     string
	Bars       int
	Evaluated  int
	Signals    []datamodels.Signal
	Resets     []time.Time
	Warnings   int
	Capital    float64
	Invested   float64
	Shares     float64
	FinalPrice float64
}

func (r *ReplayReport) MarketValue() float64 {
	return r.Shares * r.FinalPrice
}

func (r *ReplayReport) ReturnPct() float64 {
	if r.Invested == 0 {
		return 0
	}
	return (r.MarketValue() - r.Invested) / r.Invested * 100
}

type ReplayerBuilder struct {
	strategy      strategies.Strategy
	stateStore    storage.StateStore
	window        int
	capital       float64
	metricsWriter metrics.MetricsWriter
}

func NewReplayerBuilder() *ReplayerBuilder {
	return &ReplayerBuilder{
		window:  datamodels.DefaultStrategyConfig().MovingAverageWindow,
		capital: 10000,
	}
}

func (b *ReplayerBuilder) WithStrategy(strategy strategies.Strategy) *ReplayerBuilder {
	b.strategy = strategy
	return b
}

func (b *ReplayerBuilder) WithStateStore(stateStore storage.StateStore) *ReplayerBuilder {
	b.stateStore = stateStore
	return b
}

func (b *ReplayerBuilder) WithWindow(window int) *ReplayerBuilder {
	b.window = window
	return b
}

func (b *ReplayerBuilder) WithCapital(capital float64) *ReplayerBuilder {
	b.capital = capital
	return b
}

func (b *ReplayerBuilder) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *ReplayerBuilder {
	b.metricsWriter = metricsWriter
	return b
}

func (b *ReplayerBuilder) Build() (*Replayer, error) {
	if b.strategy == nil {
		return nil, errors.New("replayer needs a strategy")
	}
	if b.window <= 0 {
		return nil, errors.Newf("window must be positive, got %d", b.window)
	}
	if b.capital <= 0 {
		return nil, errors.Newf("capital must be positive, got %f", b.capital)
	}
	if b.stateStore == nil {
		b.stateStore = storage.NewMemoryStateStore()
	}
	if b.metricsWriter == nil {
		b.metricsWriter = metrics.NewMultiMetricsWriter()
	}
	return &Replayer{
		strategy:      b.strategy,
		stateStore:    b.stateStore,
		window:        b.window,
		capital:       b.capital,
		metricsWriter: b.metricsWriter,
	}, nil
}

// Replayer feeds historical closes through the strategy as if each bar were a separate run.
type Replayer struct {
	strategy      strategies.Strategy
	stateStore    storage.StateStore
	window        int
	capital       float64
	metricsWriter metrics.MetricsWriter
}

func (r *Replayer) Replay(ctx context.Context, stock datamodels.StockInfo, bars []datamodels.PriceBar) (*ReplayReport, error) {
	if len(bars) < r.window {
		return nil, errors.Newf("%s: need %d bars, got %d", stock.Symbol, r.window, len(bars))
	}
	averages, err := indicators.RollingSMA(indicators.Closes(bars), r.window)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{
		Symbol:     stock.Symbol,
		Bars:       len(bars),
		Capital:    r.capital,
		FinalPrice: bars[len(bars)-1].Close,
	}
	runId := general.NewRunId(bars[0].Timestamp, []string{stock.Symbol})

	for i := r.window - 1; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "replay cancelled")
		}

		observation := datamodels.StockObservation{
			Symbol:        stock.Symbol,
			Name:          stock.Name,
			CurrentPrice:  bars[i].Close,
			MovingAverage: averages[i-r.window+1],
			Timestamp:     bars[i].Timestamp,
			DaysOfData:    r.window,
			Provider:      datamodels.ProviderCsv,
		}
		report.Evaluated++
		r.writeMetric(ctx, runId, observation, datamodels.MetricNameDeviationPct, observation.DeviationPct())

		state, err := r.stateStore.Load(stock.Symbol)
		if err != nil {
			slog.Warn("Replaying from fresh state", "symbol", stock.Symbol, "error", err)
			report.Warnings++
		}
		evaluation := r.strategy.Evaluate(observation, state)
		if evaluation.Warning != nil {
			report.Warnings++
		}
		if evaluation.Reset {
			report.Resets = append(report.Resets, observation.Timestamp)
		}

		state = evaluation.State
		if evaluation.Signal != nil {
			signal := *evaluation.Signal
			state = r.strategy.UpdateState(signal, state)
			report.Signals = append(report.Signals, signal)

			amount := r.capital * signal.PositionSize
			report.Invested += amount
			report.Shares += amount / signal.CurrentPrice
			r.writeMetric(ctx, runId, observation, datamodels.SignalMetricName(signal.SignalType), signal.CurrentPrice)

			slog.Info("Replay signal",
				"symbol", stock.Symbol,
				"date", signal.Timestamp.Format(datamodels.StateDateLayout),
				"type", signal.SignalType,
				"price", signal.CurrentPrice,
				"moving_average", signal.MovingAverage)
		}

		if evaluation.Changed() {
			if err := r.stateStore.Save(state); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func (r *Replayer) writeMetric(ctx context.Context, runId string, observation datamodels.StockObservation, name datamodels.MetricName, value float64) {
	err := r.metricsWriter.Write(ctx, datamodels.Metric{
		RunId:       runId,
		Symbol:      observation.Symbol,
		MetricTime:  observation.Timestamp,
		MetricName:  name,
		MetricValue: value,
	})
	if err != nil {
		slog.Debug("Metric not written", "metric", name, "error", err)
	}
}
