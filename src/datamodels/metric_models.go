package datamodels

import (
	"time"
)

type MetricName string

const (
	MetricNamePrice              MetricName = "price"
	MetricNameMovingAverage      MetricName = "moving_average"
	MetricNameDeviationPct       MetricName = "deviation_pct"
	MetricNameSignalFirst        MetricName = "signal_first"
	MetricNameSignalSecond       MetricName = "signal_second"
	MetricNameFetchError         MetricName = "fetch_error"
	MetricNameSignalsTotal       MetricName = "signals_total"
	MetricNameRunDurationSeconds MetricName = "run_duration_seconds"
)

// Metric is one scalar measurement produced during a run.
// Run-level metrics leave Symbol empty.
type Metric struct {
	RunId       string     `json:"run_id"`
	Symbol      string     `json:"symbol"`
	MetricTime  time.Time  `json:"metric_time"`
	MetricName  MetricName `json:"metric_name"`
	MetricValue float64    `json:"metric_value"`
}

func SignalMetricName(signalType SignalType) MetricName {
	if signalType == SignalTypeSecond {
		return MetricNameSignalSecond
	}
	return MetricNameSignalFirst
}
