package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"stockbot/src/datamodels"
)

const metricNamespace = "stockbot"

// PrometheusTextfileWriter keeps the latest value of every metric as a gauge and writes
// them in the text exposition format on Close, for node_exporter's textfile collector.
type PrometheusTextfileWriter struct {
	path     string
	registry *prometheus.Registry
	gauges   map[datamodels.MetricName]*prometheus.GaugeVec
	mu       sync.Mutex
}

func NewPrometheusTextfileWriter(path string) *PrometheusTextfileWriter {
	return &PrometheusTextfileWriter{
		path:     path,
		registry: prometheus.NewRegistry(),
		gauges:   make(map[datamodels.MetricName]*prometheus.GaugeVec),
	}
}

func (w *PrometheusTextfileWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	gauge, ok := w.gauges[metric.MetricName]
	if !ok {
		gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      string(metric.MetricName),
			Help:      fmt.Sprintf("Latest %s reported by the signal run", metric.MetricName),
		}, []string{"symbol"})
		if err := w.registry.Register(gauge); err != nil {
			return fmt.Errorf("failed to register gauge %s: %w", metric.MetricName, err)
		}
		w.gauges[metric.MetricName] = gauge
	}
	gauge.WithLabelValues(metric.Symbol).Set(metric.MetricValue)
	return nil
}

func (w *PrometheusTextfileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.gauges) == 0 {
		slog.Debug("No metrics to export", "path", w.path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(w.path, w.registry); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", w.path, err)
	}
	slog.Info("Wrote prometheus textfile", "path", w.path, "metrics", len(w.gauges))
	return nil
}
