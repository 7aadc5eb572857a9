package metrics

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"stockbot/src/datamodels"
)

// ChartMetricsWriter collects each symbol's latest deviation from its moving average and
// renders them as a bar chart with the first signal threshold drawn across it.
type ChartMetricsWriter struct {
	filename     string
	thresholdPct float64
	deviations   map[string]float64
	mutex        sync.Mutex
}

// NewChartMetricsWriter saves to filename on Close; the extension picks the image format.
func NewChartMetricsWriter(filename string, firstThreshold float64) *ChartMetricsWriter {
	return &ChartMetricsWriter{
		filename:     filename,
		thresholdPct: (firstThreshold - 1) * 100,
		deviations:   make(map[string]float64),
	}
}

func (pb *ChartMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	if metric.MetricName != datamodels.MetricNameDeviationPct || metric.Symbol == "" {
		return nil
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.deviations[metric.Symbol] = metric.MetricValue
	return nil
}

func (pb *ChartMetricsWriter) Close() error {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()

	if len(pb.deviations) == 0 {
		slog.Info("No deviations to plot", "filename", pb.filename)
		return nil
	}

	p, err := pb.plotDeviations()
	if err != nil {
		return err
	}

	slog.Info("ChartMetricsWriter plotting via file", "filename", pb.filename)
	if err := os.MkdirAll(filepath.Dir(pb.filename), 0755); err != nil {
		return fmt.Errorf("failed to create chart directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, pb.filename); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	return nil
}

func (pb *ChartMetricsWriter) plotDeviations() (*plot.Plot, error) {
	symbols := make([]string, 0, len(pb.deviations))
	for symbol := range pb.deviations {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	values := make(plotter.Values, len(symbols))
	for i, symbol := range symbols {
		values[i] = pb.deviations[symbol]
	}

	p := plot.New()
	p.Title.Text = "Deviation from moving average"
	p.Y.Label.Text = "Deviation %"
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(symbols...)

	threshold, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: pb.thresholdPct},
		{X: float64(len(symbols)) - 0.5, Y: pb.thresholdPct},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create threshold line: %w", err)
	}
	threshold.Color = color.RGBA{R: 200, A: 255}
	threshold.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(threshold)
	p.Legend.Add(fmt.Sprintf("Signal 1 (%.0f%%)", pb.thresholdPct), threshold)
	return p, nil
}
