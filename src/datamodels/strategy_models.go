package datamodels

import (
	"fmt"
	"time"

	"stockbot/src/utils/errors"
)

type SignalType string

const (
	SignalTypeFirst  SignalType = "FIRST"
	SignalTypeSecond SignalType = "SECOND"
)

// StateDateLayout is the calendar date format stored in SignalState.
const StateDateLayout = "2006-01-02"

// Signal is an emitted buy signal. It is not persisted.
type Signal struct {
	SignalId      string     `json:"signal_id"`
	SignalType    SignalType `json:"signal_type"`
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	CurrentPrice  float64    `json:"current_price"`
	MovingAverage float64    `json:"moving_average"`
	DeviationPct  float64    `json:"deviation_pct"`
	PositionSize  float64    `json:"position_size"`
	Timestamp     time.Time  `json:"timestamp"`
	// set for SECOND only
	FirstSignalPrice *float64 `json:"first_signal_price"`
	TriggerPrice     *float64 `json:"trigger_price"`
}

// PositionSizeDisplay renders the position size as a whole percentage, e.g. "20%".
func (s *Signal) PositionSizeDisplay() string {
	return fmt.Sprintf("%.0f%%", s.PositionSize*100)
}

// SignalState is the persisted two-stage progress of one symbol.
// Every field is always serialized; unset prices and dates are explicit nulls.
type SignalState struct {
	Symbol           string   `json:"symbol"`
	Signal1Triggered bool     `json:"signal_1_triggered"`
	Signal1Price     *float64 `json:"signal_1_price"`
	Signal1Date      *string  `json:"signal_1_date"`
	Signal2Triggered bool     `json:"signal_2_triggered"`
	Signal2Price     *float64 `json:"signal_2_price"`
	Signal2Date      *string  `json:"signal_2_date"`
}

func NewSignalState(symbol string) SignalState {
	return SignalState{Symbol: symbol}
}

// ShouldReset reports whether a full FIRST -> SECOND cycle has completed.
func (s SignalState) ShouldReset() bool {
	return s.Signal1Triggered && s.Signal2Triggered
}

// Reset returns the initial form for the same symbol.
func (s SignalState) Reset() SignalState {
	return NewSignalState(s.Symbol)
}

// Copy returns a deep copy; pointer fields are not shared.
func (s SignalState) Copy() SignalState {
	out := s
	out.Signal1Price = copyPtr(s.Signal1Price)
	out.Signal1Date = copyPtr(s.Signal1Date)
	out.Signal2Price = copyPtr(s.Signal2Price)
	out.Signal2Date = copyPtr(s.Signal2Date)
	return out
}

// Validate rejects records that cannot be read back structurally. A triggered stage with a
// missing price is left for the evaluator, which reports it as ErrInconsistentState.
func (s SignalState) Validate() error {
	if s.Symbol == "" {
		return errors.Wrap(errors.ErrStateCorrupt, "symbol is empty")
	}
	if s.Signal2Triggered && !s.Signal1Triggered {
		return errors.Wrapf(errors.ErrStateCorrupt, "%s: signal 2 triggered without signal 1", s.Symbol)
	}
	if s.Signal1Date != nil {
		if _, err := time.Parse(StateDateLayout, *s.Signal1Date); err != nil {
			return errors.Wrapef(errors.ErrStateCorrupt, err, "%s: signal 1 date", s.Symbol)
		}
	}
	if s.Signal2Date != nil {
		if _, err := time.Parse(StateDateLayout, *s.Signal2Date); err != nil {
			return errors.Wrapef(errors.ErrStateCorrupt, err, "%s: signal 2 date", s.Symbol)
		}
	}
	return nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
