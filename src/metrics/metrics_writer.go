package metrics

import (
	"context"
	"log/slog"

	"stockbot/src/datamodels"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	// Write records one metric
	Write(ctx context.Context, metric datamodels.Metric) error
	// Close flushes buffered output and cleans up any resources
	Close() error
}

// BuildMetricsWriter fans out to every writer enabled in config. With nothing enabled the
// returned writer discards metrics.
func BuildMetricsWriter(config *datamodels.MetricsWriterConfig, firstThreshold float64) (MetricsWriter, error) {
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, skipping metrics writer")
		return NewMultiMetricsWriter(), nil
	}
	writers := []MetricsWriter{}
	if config.FileWriter {
		metricsWriter, err := NewFileMetricsWriter(config.FilePath, FileFormat(config.Format))
		if err != nil {
			return nil, err
		}
		writers = append(writers, metricsWriter)
	}
	if config.PrometheusTextfile != "" {
		writers = append(writers, NewPrometheusTextfileWriter(config.PrometheusTextfile))
	}
	if config.ChartPath != "" {
		writers = append(writers, NewChartMetricsWriter(config.ChartPath, firstThreshold))
	}
	slog.Debug("Built metrics writer", "writers", len(writers))
	return NewMultiMetricsWriter(writers...), nil
}
