package strategies

import (
	"log/slog"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

// Evaluation is the outcome of evaluating one observation against one state.
type Evaluation struct {
	// Signal is nil when nothing fired.
	Signal *datamodels.Signal
	// State is the input state after any reset. UpdateState has not been applied.
	State datamodels.SignalState
	// Reset is true when a completed cycle was cleared before evaluating.
	Reset bool
	// Warning is set when the state could not be evaluated, e.g. ErrInconsistentState.
	Warning error
}

// Changed reports whether the state must be persisted.
func (e Evaluation) Changed() bool {
	return e.Reset || e.Signal != nil
}

type Strategy interface {
	GetName() string
	// Evaluate never mutates its input and emits at most one signal.
	Evaluate(observation datamodels.StockObservation, state datamodels.SignalState) Evaluation
	// UpdateState records a fired signal on the state.
	UpdateState(signal datamodels.Signal, state datamodels.SignalState) datamodels.SignalState
}

func StrategyFromConfig(config *datamodels.StrategyConfig) (Strategy, error) {
	if config == nil {
		return nil, errors.New("strategy config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case datamodels.StrategyTypeMADeviation:
		strategy := NewMADeviationStrategy().
			WithWindow(config.MovingAverageWindow).
			WithThresholds(config.FirstThreshold, config.SecondThreshold).
			WithPositionSizes(config.FirstPositionSize, config.SecondPositionSize)
		slog.Info("Built strategy", "name", strategy.GetName(),
			"first_threshold", config.FirstThreshold, "second_threshold", config.SecondThreshold)
		return strategy, nil
	default:
		return nil, errors.Newf("unknown strategy type: %s", config.Type)
	}
}
