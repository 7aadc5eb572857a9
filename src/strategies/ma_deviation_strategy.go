package strategies

import (
	"fmt"
	"log/slog"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
	"stockbot/src/utils/general"
)

// MADeviationStrategy is a two-stage buy strategy on the distance of price below its moving average.
//
// FIRST fires when price <= MA * firstThreshold and records the price.
// SECOND fires when price <= FIRST price * secondThreshold.
// Once both have fired the next evaluation starts a fresh cycle.
type MADeviationStrategy struct {
	window             int
	firstThreshold     float64
	secondThreshold    float64
	firstPositionSize  float64
	secondPositionSize float64
}

func NewMADeviationStrategy() *MADeviationStrategy {
	defaults := datamodels.DefaultStrategyConfig()
	return &MADeviationStrategy{
		window:             defaults.MovingAverageWindow,
		firstThreshold:     defaults.FirstThreshold,
		secondThreshold:    defaults.SecondThreshold,
		firstPositionSize:  defaults.FirstPositionSize,
		secondPositionSize: defaults.SecondPositionSize,
	}
}

func (s *MADeviationStrategy) WithWindow(window int) *MADeviationStrategy {
	s.window = window
	return s
}

func (s *MADeviationStrategy) WithThresholds(first, second float64) *MADeviationStrategy {
	s.firstThreshold = first
	s.secondThreshold = second
	return s
}

func (s *MADeviationStrategy) WithPositionSizes(first, second float64) *MADeviationStrategy {
	s.firstPositionSize = first
	s.secondPositionSize = second
	return s
}

func (s *MADeviationStrategy) GetName() string {
	return fmt.Sprintf("MA%d Deviation", s.window)
}

func (s *MADeviationStrategy) FirstThreshold() float64 {
	return s.firstThreshold
}

func (s *MADeviationStrategy) SecondThreshold() float64 {
	return s.secondThreshold
}

func (s *MADeviationStrategy) Evaluate(observation datamodels.StockObservation, state datamodels.SignalState) Evaluation {
	result := Evaluation{State: state.Copy()}

	if result.State.ShouldReset() {
		slog.Info("Resetting state after completed cycle", "symbol", observation.Symbol)
		result.State = result.State.Reset()
		result.Reset = true
	}

	if result.State.Signal1Triggered && !result.State.Signal2Triggered {
		if result.State.Signal1Price == nil {
			result.Warning = errors.Wrapf(errors.ErrInconsistentState,
				"%s: signal 1 triggered but no price recorded", observation.Symbol)
			slog.Warn("Skipping evaluation", "symbol", observation.Symbol, "error", result.Warning)
			return result
		}
		result.Signal = s.checkSecond(observation, *result.State.Signal1Price)
		return result
	}

	if !result.State.Signal1Triggered {
		result.Signal = s.checkFirst(observation)
	}

	return result
}

func (s *MADeviationStrategy) checkFirst(observation datamodels.StockObservation) *datamodels.Signal {
	triggerPrice := observation.MovingAverage * s.firstThreshold
	if observation.CurrentPrice > triggerPrice {
		return nil
	}

	slog.Info("FIRST signal triggered", "symbol", observation.Symbol,
		"price", observation.CurrentPrice, "trigger_price", triggerPrice)

	return &datamodels.Signal{
		SignalId:      signalId(observation, datamodels.SignalTypeFirst),
		SignalType:    datamodels.SignalTypeFirst,
		Symbol:        observation.Symbol,
		Name:          observation.Name,
		CurrentPrice:  observation.CurrentPrice,
		MovingAverage: observation.MovingAverage,
		DeviationPct:  observation.DeviationPct(),
		PositionSize:  s.firstPositionSize,
		Timestamp:     observation.Timestamp,
	}
}

func (s *MADeviationStrategy) checkSecond(observation datamodels.StockObservation, firstPrice float64) *datamodels.Signal {
	triggerPrice := firstPrice * s.secondThreshold
	if observation.CurrentPrice > triggerPrice {
		return nil
	}

	slog.Info("SECOND signal triggered", "symbol", observation.Symbol,
		"price", observation.CurrentPrice, "first_price", firstPrice, "trigger_price", triggerPrice)

	return &datamodels.Signal{
		SignalId:         signalId(observation, datamodels.SignalTypeSecond),
		SignalType:       datamodels.SignalTypeSecond,
		Symbol:           observation.Symbol,
		Name:             observation.Name,
		CurrentPrice:     observation.CurrentPrice,
		MovingAverage:    observation.MovingAverage,
		DeviationPct:     observation.DeviationPct(),
		PositionSize:     s.secondPositionSize,
		Timestamp:        observation.Timestamp,
		FirstSignalPrice: general.Ptr(firstPrice),
		TriggerPrice:     general.Ptr(triggerPrice),
	}
}

func (s *MADeviationStrategy) UpdateState(signal datamodels.Signal, state datamodels.SignalState) datamodels.SignalState {
	updated := state.Copy()
	date := signal.Timestamp.Format(datamodels.StateDateLayout)

	switch signal.SignalType {
	case datamodels.SignalTypeFirst:
		updated.Signal1Triggered = true
		updated.Signal1Price = general.Ptr(signal.CurrentPrice)
		updated.Signal1Date = general.Ptr(date)
	case datamodels.SignalTypeSecond:
		updated.Signal2Triggered = true
		updated.Signal2Price = general.Ptr(signal.CurrentPrice)
		updated.Signal2Date = general.Ptr(date)
	default:
		slog.Warn("Ignoring unknown signal type", "symbol", signal.Symbol, "type", signal.SignalType)
		return updated
	}

	slog.Info("Updated state", "symbol", signal.Symbol, "type", signal.SignalType,
		"price", signal.CurrentPrice, "date", date)
	return updated
}

func signalId(observation datamodels.StockObservation, signalType datamodels.SignalType) string {
	key := fmt.Sprintf("%s|%s|%d", observation.Symbol, signalType, observation.Timestamp.UnixNano())
	return general.GenerateUUID5StringFromByteArray([]byte(key))
}
