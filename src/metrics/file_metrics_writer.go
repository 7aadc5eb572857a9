package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"stockbot/src/datamodels"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

// FileMetricsWriter appends metrics to one CSV or JSON-lines file per UTC day
type FileMetricsWriter struct {
	baseDir    string
	files      map[string]*os.File
	csvWriters map[string]*csv.Writer
	fileFormat FileFormat
	mu         sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("unsupported metrics file format %q", format)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create metrics directory: %w", err)
	}

	return &FileMetricsWriter{
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvWriters: make(map[string]*csv.Writer),
		fileFormat: format,
	}, nil
}

// Filename is the file a metric taken at t is appended to.
func (w *FileMetricsWriter) Filename(t time.Time) string {
	utc := t.UTC()
	dateId := fmt.Sprintf("%d%02d%02d", utc.Year(), utc.Month(), utc.Day())
	return filepath.Join(w.baseDir, fmt.Sprintf("%s_metrics.%s", dateId, w.fileFormat))
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	filename := w.Filename(metric.MetricTime)
	file, err := w.open(filename)
	if err != nil {
		return err
	}

	switch w.fileFormat {
	case FormatJSON:
		jsonBytes, err := json.Marshal(metric)
		if err != nil {
			return fmt.Errorf("failed to marshal metric to JSON: %w", err)
		}
		if _, err := file.Write(append(jsonBytes, '\n')); err != nil {
			return fmt.Errorf("failed to write JSON metrics: %w", err)
		}
	case FormatCSV:
		csvWriter := w.csvWriters[filename]
		if err := csvWriter.Write(csvValues(metric)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return fmt.Errorf("error flushing CSV writer: %w", err)
		}
	}

	return nil
}

// open returns the handle for filename, creating the file and its CSV header on first use.
// Files from earlier runs on the same day are appended to without a second header.
func (w *FileMetricsWriter) open(filename string) (*os.File, error) {
	if file, ok := w.files[filename]; ok {
		return file, nil
	}

	_, statErr := os.Stat(filename)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics file: %w", err)
	}
	w.files[filename] = f

	if w.fileFormat == FormatCSV {
		csvWriter := csv.NewWriter(f)
		w.csvWriters[filename] = csvWriter
		if isNew {
			if err := csvWriter.Write(csvHeaders(datamodels.Metric{})); err != nil {
				return nil, fmt.Errorf("failed to write CSV headers: %w", err)
			}
			csvWriter.Flush()
		}
	}
	return f, nil
}

func (w *FileMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for filename, file := range w.files {
		if writer := w.csvWriters[filename]; writer != nil {
			writer.Flush()
			if err := writer.Error(); err != nil {
				slog.Error("Failed to flush CSV writer", "file", filename, "error", err)
				lastErr = err
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "file", filename, "error", err)
			lastErr = err
		}
	}
	w.files = make(map[string]*os.File)
	w.csvWriters = make(map[string]*csv.Writer)
	return lastErr
}

// csvHeaders uses the json tag names of the struct fields.
func csvHeaders(v any) []string {
	t := reflect.TypeOf(v)
	headers := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag != "" {
			headers = append(headers, strings.Split(jsonTag, ",")[0])
		} else {
			headers = append(headers, field.Name)
		}
	}
	return headers
}

func csvValues(v any) []string {
	rv := reflect.ValueOf(v)
	values := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		switch val := rv.Field(i).Interface().(type) {
		case time.Time:
			values = append(values, val.UTC().Format(time.RFC3339))
		default:
			values = append(values, fmt.Sprintf("%v", val))
		}
	}
	return values
}
