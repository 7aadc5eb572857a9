package indicators

import (
	"github.com/montanaflynn/stats"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, errors.Newf("need %d values, got %d", period, len(values))
	}
	mean, err := stats.Mean(stats.Float64Data(values[len(values)-period:]))
	if err != nil {
		return 0, errors.Wrap(err, "failed to compute mean")
	}
	return mean, nil
}

// RollingSMA returns one average per index starting at period-1. Earlier indices have no value.
func RollingSMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// Closes extracts the close prices of bars in order.
func Closes(bars []datamodels.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	return closes
}

// DeviationPct is the percent distance of price from average.
func DeviationPct(price, average float64) float64 {
	return (price - average) / average * 100
}
