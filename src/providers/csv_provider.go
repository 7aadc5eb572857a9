package providers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockbot/src/datamodels"
)

// CsvProvider reads <data_dir>/<SYMBOL>.csv. The timestamp column holds unix seconds or YYYY-MM-DD.
type CsvProvider struct {
	dataDir         string
	timestampColumn int
	closeColumn     int
	hasHeader       bool
	location        *time.Location
}

func NewCsvProvider(config datamodels.CsvProviderConfig, location *time.Location) *CsvProvider {
	if location == nil {
		location = time.UTC
	}
	return &CsvProvider{
		dataDir:         config.DataDir,
		timestampColumn: config.TimestampColumn,
		closeColumn:     config.CloseColumn,
		hasHeader:       config.HasHeader,
		location:        location,
	}
}

func (p *CsvProvider) GetName() string {
	return datamodels.ProviderCsv
}

func (p *CsvProvider) FilePath(symbol string) string {
	return filepath.Join(p.dataDir, fmt.Sprintf("%s.csv", strings.ToUpper(symbol)))
}

func (p *CsvProvider) FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error) {
	return p.ReadFile(ctx, p.FilePath(stock.Symbol))
}

// ReadFile parses one closes file, oldest first.
func (p *CsvProvider) ReadFile(ctx context.Context, path string) ([]datamodels.PriceBar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file at %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var bars []datamodels.PriceBar
	line := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line+1, err)
		}
		line++
		if line == 1 && p.hasHeader {
			continue
		}

		bar, err := p.parseRecord(record)
		if err != nil {
			slog.Warn("Skipping CSV line", "path", path, "line", line, "error", err)
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}
	return cleanBars(bars), nil
}

func (p *CsvProvider) parseRecord(record []string) (datamodels.PriceBar, error) {
	if p.timestampColumn >= len(record) || p.closeColumn >= len(record) {
		return datamodels.PriceBar{}, fmt.Errorf("expected at least %d columns, got %d",
			max(p.timestampColumn, p.closeColumn)+1, len(record))
	}

	timestamp, err := p.parseTimestamp(strings.TrimSpace(record[p.timestampColumn]))
	if err != nil {
		return datamodels.PriceBar{}, err
	}
	closePrice, err := strconv.ParseFloat(strings.TrimSpace(record[p.closeColumn]), 64)
	if err != nil {
		return datamodels.PriceBar{}, fmt.Errorf("bad close %q: %w", record[p.closeColumn], err)
	}
	return datamodels.PriceBar{Timestamp: timestamp, Close: closePrice}, nil
}

func (p *CsvProvider) parseTimestamp(raw string) (time.Time, error) {
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(seconds, 0).In(p.location), nil
	}
	timestamp, err := time.ParseInLocation(datamodels.StateDateLayout, raw, p.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", raw)
	}
	return timestamp, nil
}
