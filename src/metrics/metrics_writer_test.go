//go:build unit

package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/src/datamodels"
)

var metricTime = time.Date(2024, 3, 15, 20, 30, 0, 0, time.UTC)

func testMetrics() []datamodels.Metric {
	return []datamodels.Metric{
		{RunId: "run-1", Symbol: "SPY", MetricTime: metricTime, MetricName: datamodels.MetricNamePrice, MetricValue: 500.25},
		{RunId: "run-1", Symbol: "SPY", MetricTime: metricTime, MetricName: datamodels.MetricNameDeviationPct, MetricValue: 2.5},
		{RunId: "run-1", Symbol: "AAPL", MetricTime: metricTime, MetricName: datamodels.MetricNameDeviationPct, MetricValue: -16},
		{RunId: "run-1", MetricTime: metricTime, MetricName: datamodels.MetricNameSignalsTotal, MetricValue: 1},
	}
}

func writeAll(t *testing.T, writer MetricsWriter, metrics []datamodels.Metric) {
	for _, metric := range metrics {
		require.NoError(t, writer.Write(context.Background(), metric))
	}
}

func readLines(t *testing.T, path string) []string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestFileMetricsWriterCSV(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileMetricsWriter(dir, FormatCSV)
	require.NoError(t, err)

	writeAll(t, writer, testMetrics())
	require.NoError(t, writer.Close())

	path := filepath.Join(dir, "20240315_metrics.csv")
	assert.Equal(t, path, writer.Filename(metricTime))
	lines := readLines(t, path)
	require.Len(t, lines, 5)
	assert.Equal(t, "run_id,symbol,metric_time,metric_name,metric_value", lines[0])
	assert.Equal(t, "run-1,SPY,2024-03-15T20:30:00Z,price,500.25", lines[1])
	assert.Equal(t, "run-1,,2024-03-15T20:30:00Z,signals_total,1", lines[4])

	// a second run on the same day appends without repeating the header
	writer, err = NewFileMetricsWriter(dir, FormatCSV)
	require.NoError(t, err)
	writeAll(t, writer, testMetrics()[:1])
	require.NoError(t, writer.Close())

	lines = readLines(t, path)
	assert.Len(t, lines, 6)
	assert.Equal(t, 1, strings.Count(strings.Join(lines, "\n"), "run_id"))
}

func TestFileMetricsWriterJSON(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewFileMetricsWriter(dir, FormatJSON)
	require.NoError(t, err)

	writeAll(t, writer, testMetrics())
	require.NoError(t, writer.Close())

	lines := readLines(t, filepath.Join(dir, "20240315_metrics.json"))
	require.Len(t, lines, 4)
	var metric datamodels.Metric
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &metric))
	assert.Equal(t, "AAPL", metric.Symbol)
	assert.Equal(t, -16.0, metric.MetricValue)
}

func TestFileMetricsWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewFileMetricsWriter(t.TempDir(), FileFormat("xml"))
	assert.Error(t, err)
}

func TestPrometheusTextfileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "stockbot.prom")
	writer := NewPrometheusTextfileWriter(path)

	writeAll(t, writer, testMetrics())
	// latest value wins
	require.NoError(t, writer.Write(context.Background(), datamodels.Metric{
		Symbol: "SPY", MetricName: datamodels.MetricNamePrice, MetricValue: 501,
	}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE stockbot_price gauge")
	assert.Contains(t, text, `stockbot_price{symbol="SPY"} 501`)
	assert.Contains(t, text, `stockbot_deviation_pct{symbol="AAPL"} -16`)
	assert.Contains(t, text, "# TYPE stockbot_signals_total gauge")
}

func TestPrometheusTextfileWriterWithoutMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockbot.prom")
	require.NoError(t, NewPrometheusTextfileWriter(path).Close())
	assert.NoFileExists(t, path)
}

func TestChartMetricsWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "deviation.png")
	writer := NewChartMetricsWriter(path, 0.85)

	writeAll(t, writer, testMetrics())
	assert.Len(t, writer.deviations, 2)
	require.NoError(t, writer.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestChartMetricsWriterWithoutDeviations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deviation.png")
	writer := NewChartMetricsWriter(path, 0.85)
	writeAll(t, writer, testMetrics()[:1])
	require.NoError(t, writer.Close())
	assert.NoFileExists(t, path)
}

func TestBuildMetricsWriter(t *testing.T) {
	dir := t.TempDir()

	writer, err := BuildMetricsWriter(nil, 0.85)
	require.NoError(t, err)
	assert.Equal(t, 0, writer.(*MultiMetricsWriter).Len())

	writer, err = BuildMetricsWriter(&datamodels.MetricsWriterConfig{
		FileWriter:         true,
		FilePath:           dir,
		Format:             "json",
		PrometheusTextfile: filepath.Join(dir, "stockbot.prom"),
		ChartPath:          filepath.Join(dir, "deviation.png"),
	}, 0.85)
	require.NoError(t, err)
	assert.Equal(t, 3, writer.(*MultiMetricsWriter).Len())

	writeAll(t, writer, testMetrics())
	require.NoError(t, writer.Close())
	assert.FileExists(t, filepath.Join(dir, "20240315_metrics.json"))
	assert.FileExists(t, filepath.Join(dir, "stockbot.prom"))
	assert.FileExists(t, filepath.Join(dir, "deviation.png"))
}
