package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"stockbot/src/datamodels"
	"stockbot/src/indicators"
	"stockbot/src/utils/errors"
)

const allProvidersName = "all_providers"

type fetcherEntry struct {
	provider     DataProvider
	allowPartial bool
}

// Fetcher turns provider bars into a StockObservation, falling back through providers in order.
type Fetcher struct {
	entries  []fetcherEntry
	window   int
	minDays  int
	location *time.Location
}

type FetcherBuilder struct {
	entries  []fetcherEntry
	window   int
	minDays  int
	location *time.Location
}

func NewFetcherBuilder() *FetcherBuilder {
	return &FetcherBuilder{
		window:   120,
		minDays:  30,
		location: time.UTC,
	}
}

// WithProvider appends a provider. allowPartial accepts fewer bars than the window, down to min days.
func (b *FetcherBuilder) WithProvider(provider DataProvider, allowPartial bool) *FetcherBuilder {
	b.entries = append(b.entries, fetcherEntry{provider: provider, allowPartial: allowPartial})
	return b
}

func (b *FetcherBuilder) WithWindow(window int) *FetcherBuilder {
	b.window = window
	return b
}

func (b *FetcherBuilder) WithMinDays(minDays int) *FetcherBuilder {
	b.minDays = minDays
	return b
}

func (b *FetcherBuilder) WithLocation(location *time.Location) *FetcherBuilder {
	if location != nil {
		b.location = location
	}
	return b
}

func (b *FetcherBuilder) Build() (*Fetcher, error) {
	if len(b.entries) == 0 {
		return nil, errors.New("at least one data provider is required")
	}
	if b.window <= 0 {
		return nil, errors.Newf("window must be positive, got %d", b.window)
	}
	if b.minDays <= 0 || b.minDays > b.window {
		return nil, errors.Newf("min days must be in (0, %d], got %d", b.window, b.minDays)
	}
	names := make([]string, 0, len(b.entries))
	for _, entry := range b.entries {
		names = append(names, entry.provider.GetName())
	}
	slog.Info("Initialized data fetcher", "providers", names, "window", b.window)
	return &Fetcher{
		entries:  b.entries,
		window:   b.window,
		minDays:  b.minDays,
		location: b.location,
	}, nil
}

// Fetch returns an observation or a *datamodels.FetchError listing every provider failure.
func (f *Fetcher) Fetch(ctx context.Context, stock datamodels.StockInfo) (datamodels.StockObservation, error) {
	var failures []string

	for i, entry := range f.entries {
		name := entry.provider.GetName()
		if i > 0 {
			slog.Warn("Falling back to next provider", "symbol", stock.Symbol, "provider", name)
		}
		slog.Info("Fetching stock data", "symbol", stock.Symbol, "provider", name)

		bars, err := entry.provider.FetchBars(ctx, stock)
		if err == nil {
			var observation datamodels.StockObservation
			observation, err = f.observationFromBars(name, stock, bars, entry.allowPartial)
			if err == nil {
				return observation, nil
			}
		}

		slog.Warn("Provider failed", "symbol", stock.Symbol, "provider", name, "error", err)
		failures = append(failures, fmt.Sprintf("%s: %s", name, err))

		if ctx.Err() != nil {
			break
		}
	}

	message := "Unknown error"
	if len(failures) > 0 {
		message = strings.Join(failures, " | ")
	}
	slog.Error("All providers failed", "symbol", stock.Symbol)
	return datamodels.StockObservation{}, &datamodels.FetchError{
		Symbol:   stock.Symbol,
		Name:     stock.Name,
		Provider: allProvidersName,
		Message:  message,
	}
}

func (f *Fetcher) observationFromBars(providerName string, stock datamodels.StockInfo,
	bars []datamodels.PriceBar, allowPartial bool) (datamodels.StockObservation, error) {

	bars = cleanBars(bars)
	required := f.window
	if allowPartial {
		required = f.minDays
	}
	if len(bars) < required {
		return datamodels.StockObservation{}, fmt.Errorf(
			"insufficient data: only %d days available, need at least %d", len(bars), required)
	}
	if len(bars) < f.window {
		slog.Warn("Using partial history for moving average", "symbol", stock.Symbol,
			"provider", providerName, "days", len(bars), "window", f.window)
	}

	period := f.window
	if len(bars) < period {
		period = len(bars)
	}
	average, err := indicators.SMA(indicators.Closes(bars), period)
	if err != nil {
		return datamodels.StockObservation{}, err
	}

	last := bars[len(bars)-1]
	observation := datamodels.StockObservation{
		Symbol:        stock.Symbol,
		Name:          stock.Name,
		CurrentPrice:  last.Close,
		MovingAverage: average,
		Timestamp:     last.Timestamp.In(f.location),
		DaysOfData:    len(bars),
		Provider:      providerName,
	}
	if err := observation.Validate(); err != nil {
		return datamodels.StockObservation{}, fmt.Errorf("invalid observation: %w", err)
	}

	slog.Info("Fetched stock data", "symbol", stock.Symbol, "provider", providerName,
		"price", observation.CurrentPrice, "moving_average", observation.MovingAverage,
		"deviation_pct", observation.DeviationPct(), "days", observation.DaysOfData)
	return observation, nil
}

// cleanBars drops non-positive closes and sorts oldest first.
func cleanBars(bars []datamodels.PriceBar) []datamodels.PriceBar {
	out := make([]datamodels.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Close > 0 {
			out = append(out, bar)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
