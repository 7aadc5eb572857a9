//go:build unit

package datamodels

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/src/utils/errors"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

func TestSignalStateSerializesExplicitNulls(t *testing.T) {
	state := NewSignalState("AAPL")

	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	expected := []string{
		"symbol", "signal_1_triggered", "signal_1_price", "signal_1_date",
		"signal_2_triggered", "signal_2_price", "signal_2_date",
	}
	assert.Len(t, fields, len(expected))
	for _, key := range expected {
		assert.Contains(t, fields, key)
	}
	assert.Nil(t, fields["signal_1_price"])
	assert.Nil(t, fields["signal_2_date"])
	assert.Equal(t, false, fields["signal_1_triggered"])
}

func TestSignalStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   SignalState
		wantErr bool
	}{
		{"fresh", NewSignalState("SPY"), false},
		{"first triggered", SignalState{Symbol: "SPY", Signal1Triggered: true, Signal1Price: floatPtr(85), Signal1Date: strPtr("2024-03-01")}, false},
		{"both triggered", SignalState{
			Symbol: "SPY", Signal1Triggered: true, Signal1Price: floatPtr(85), Signal1Date: strPtr("2024-03-01"),
			Signal2Triggered: true, Signal2Price: floatPtr(68), Signal2Date: strPtr("2024-04-02"),
		}, false},
		{"empty symbol", SignalState{}, true},
		{"second without first", SignalState{Symbol: "SPY", Signal2Triggered: true, Signal2Price: floatPtr(68), Signal2Date: strPtr("2024-04-02")}, true},
		{"flag without price is left to the evaluator", SignalState{Symbol: "SPY", Signal1Triggered: true, Signal1Date: strPtr("2024-03-01")}, false},
		{"bad second date", SignalState{
			Symbol: "SPY", Signal1Triggered: true, Signal1Price: floatPtr(85), Signal1Date: strPtr("2024-03-01"),
			Signal2Triggered: true, Signal2Price: floatPtr(68), Signal2Date: strPtr("tomorrow"),
		}, true},
		{"bad date", SignalState{Symbol: "SPY", Signal1Triggered: true, Signal1Price: floatPtr(85), Signal1Date: strPtr("03/01/2024")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrStateCorrupt), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignalStateResetAndCopy(t *testing.T) {
	state := SignalState{
		Symbol: "NVDA", Signal1Triggered: true, Signal1Price: floatPtr(85), Signal1Date: strPtr("2024-03-01"),
		Signal2Triggered: true, Signal2Price: floatPtr(68), Signal2Date: strPtr("2024-04-02"),
	}
	assert.True(t, state.ShouldReset())

	copied := state.Copy()
	*copied.Signal1Price = 1
	assert.Equal(t, 85.0, *state.Signal1Price)

	reset := state.Reset()
	assert.Equal(t, NewSignalState("NVDA"), reset)
	assert.False(t, reset.ShouldReset())
}

func TestSignalPositionSizeDisplay(t *testing.T) {
	signal := Signal{PositionSize: 0.20, Timestamp: time.Now()}
	assert.Equal(t, "20%", signal.PositionSizeDisplay())
}

func TestObservationDeviation(t *testing.T) {
	obs := StockObservation{Symbol: "SPY", CurrentPrice: 85, MovingAverage: 100}
	assert.InDelta(t, -15.0, obs.DeviationPct(), 1e-9)
	assert.NoError(t, obs.Validate())

	obs.MovingAverage = 0
	assert.Error(t, obs.Validate())
}

func TestFetchErrorUnwrapsToDataUnavailable(t *testing.T) {
	var err error = &FetchError{Symbol: "TSLA", Provider: "all_providers", Message: "yahoo: timeout"}
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
	assert.Equal(t, "TSLA (all_providers): yahoo: timeout", err.Error())
}
