//go:build unit

package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

var spy = datamodels.StockInfo{Symbol: "SPY", Name: "SPDR S&P 500 ETF", Category: datamodels.StockCategoryIndex}

func newYork(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// yahooBody builds a chart response with n daily closes 100, 101, ... and an optional null close.
func yahooBody(n int, withNull bool) string {
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC).Unix()
	timestamps := make([]string, 0, n+1)
	closes := make([]string, 0, n+1)
	for i := 0; i < n; i++ {
		timestamps = append(timestamps, fmt.Sprintf("%d", start+int64(i)*86400))
		closes = append(closes, fmt.Sprintf("%d", 100+i))
	}
	if withNull {
		timestamps = append(timestamps, fmt.Sprintf("%d", start+int64(n)*86400))
		closes = append(closes, "null")
	}
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"SPY","currency":"USD"},
		"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		strings.Join(timestamps, ","), strings.Join(closes, ","))
}

func TestYahooProviderFetchBars(t *testing.T) {
	var gotPath, gotRange, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(yahooBody(5, true)))
	}))
	defer server.Close()

	provider := NewYahooProvider(datamodels.YahooConfig{BaseURL: server.URL, Range: "1y"}, newYork(t))
	bars, err := provider.FetchBars(context.Background(), spy)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/SPY", gotPath)
	assert.Equal(t, "1y", gotRange)
	assert.NotEmpty(t, gotAgent)
	require.Len(t, bars, 5)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 104.0, bars[4].Close)
	assert.Equal(t, "America/New_York", bars[0].Timestamp.Location().String())
}

func TestYahooProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"chart error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, "symbol may be delisted"},
		{"server error", http.StatusInternalServerError, `oops`, "unexpected status 500"},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, "no data returned"},
		{"bad json", http.StatusOK, `{"chart":`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewYahooProvider(datamodels.YahooConfig{BaseURL: server.URL}, time.UTC)
			_, err := provider.FetchBars(context.Background(), spy)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAlphaVantageProviderFetchBars(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"Meta Data":{"2. Symbol":"SPY"},"Time Series (Daily)":{
			"2024-03-04":{"1. open":"1","4. close":"512.30"},
			"2024-03-01":{"1. open":"1","4. close":"510.10"},
			"2024-03-05":{"1. open":"1","4. close":"507.00"}}}`))
	}))
	defer server.Close()

	provider := NewAlphaVantageProvider(datamodels.AlphaVantageConfig{BaseURL: server.URL, RequestsPerMinute: 600}, "secret", newYork(t))
	bars, err := provider.FetchBars(context.Background(), spy)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "function=TIME_SERIES_DAILY")
	assert.Contains(t, gotQuery, "apikey=secret")
	assert.Contains(t, gotQuery, "outputsize=compact")
	require.Len(t, bars, 3)
	assert.Equal(t, 510.10, bars[0].Close)
	assert.Equal(t, 507.00, bars[2].Close)
	assert.Equal(t, "2024-03-05", bars[2].Timestamp.Format("2006-01-02"))
}

func TestAlphaVantageProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"error message", `{"Error Message":"Invalid API call"}`, "Alpha Vantage API error: Invalid API call"},
		{"rate limit note", `{"Note":"Thank you for using Alpha Vantage!"}`, "rate limit reached"},
		{"information", `{"Information":"premium endpoint"}`, "premium endpoint"},
		{"no series", `{}`, "no time series data"},
		{"bad close", `{"Time Series (Daily)":{"2024-03-01":{"4. close":"abc"}}}`, "bad close"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewAlphaVantageProvider(datamodels.AlphaVantageConfig{BaseURL: server.URL, RequestsPerMinute: 600}, "k", time.UTC)
			_, err := provider.FetchBars(context.Background(), spy)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAlphaVantageLimiterRespectsContext(t *testing.T) {
	provider := NewAlphaVantageProvider(datamodels.AlphaVantageConfig{BaseURL: "http://127.0.0.1:1", RequestsPerMinute: 1}, "k", time.UTC)
	// consume the single token
	require.True(t, provider.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := provider.FetchBars(ctx, spy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestCsvProviderFetchBars(t *testing.T) {
	dir := t.TempDir()
	content := "date,close\n2024-03-04,512.30\n2024-03-01,510.10\nbad,row\n1709683200,507.00\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(content), 0644))

	provider := NewCsvProvider(datamodels.CsvProviderConfig{DataDir: dir, TimestampColumn: 0, CloseColumn: 1, HasHeader: true}, time.UTC)
	bars, err := provider.FetchBars(context.Background(), spy)
	require.NoError(t, err)

	require.Len(t, bars, 3)
	assert.Equal(t, 510.10, bars[0].Close)
	assert.Equal(t, 507.00, bars[2].Close)

	_, err = provider.FetchBars(context.Background(), datamodels.StockInfo{Symbol: "AAPL"})
	assert.Error(t, err)
}

type fakeProvider struct {
	name  string
	bars  []datamodels.PriceBar
	err   error
	calls int
}

func (f *fakeProvider) GetName() string { return f.name }

func (f *fakeProvider) FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error) {
	f.calls++
	return f.bars, f.err
}

func flatBars(n int, price float64) []datamodels.PriceBar {
	start := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
	bars := make([]datamodels.PriceBar, n)
	for i := range bars {
		bars[i] = datamodels.PriceBar{Timestamp: start.AddDate(0, 0, i), Close: price}
	}
	return bars
}

func TestFetcherUsesPrimaryProvider(t *testing.T) {
	bars := flatBars(130, 100)
	bars[len(bars)-1].Close = 85
	primary := &fakeProvider{name: "yahoo", bars: bars}
	secondary := &fakeProvider{name: "alpha_vantage", bars: flatBars(130, 1)}

	fetcher, err := NewFetcherBuilder().WithProvider(primary, false).WithProvider(secondary, true).
		WithWindow(120).WithMinDays(30).WithLocation(newYork(t)).Build()
	require.NoError(t, err)

	observation, err := fetcher.Fetch(context.Background(), spy)
	require.NoError(t, err)

	assert.Equal(t, 0, secondary.calls)
	assert.Equal(t, "yahoo", observation.Provider)
	assert.Equal(t, 85.0, observation.CurrentPrice)
	assert.InDelta(t, (119*100.0+85)/120, observation.MovingAverage, 1e-9)
	assert.Equal(t, 130, observation.DaysOfData)
	assert.Equal(t, "America/New_York", observation.Timestamp.Location().String())
}

func TestFetcherFallsBackOnInsufficientData(t *testing.T) {
	primary := &fakeProvider{name: "yahoo", bars: flatBars(60, 100)}
	secondary := &fakeProvider{name: "alpha_vantage", bars: flatBars(100, 50)}

	fetcher, err := NewFetcherBuilder().WithProvider(primary, false).WithProvider(secondary, true).Build()
	require.NoError(t, err)

	observation, err := fetcher.Fetch(context.Background(), spy)
	require.NoError(t, err)
	assert.Equal(t, "alpha_vantage", observation.Provider)
	assert.Equal(t, 50.0, observation.MovingAverage)
	assert.Equal(t, 100, observation.DaysOfData)
}

func TestFetcherCombinesErrors(t *testing.T) {
	primary := &fakeProvider{name: "yahoo", err: fmt.Errorf("network error: timeout")}
	secondary := &fakeProvider{name: "alpha_vantage", bars: flatBars(10, 50)}

	fetcher, err := NewFetcherBuilder().WithProvider(primary, false).WithProvider(secondary, true).Build()
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), spy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))

	var fetchErr *datamodels.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "SPY", fetchErr.Symbol)
	assert.Equal(t, "all_providers", fetchErr.Provider)
	assert.Equal(t,
		"yahoo: network error: timeout | alpha_vantage: insufficient data: only 10 days available, need at least 30",
		fetchErr.Message)
}

func TestFetcherBuildValidation(t *testing.T) {
	_, err := NewFetcherBuilder().Build()
	assert.Error(t, err)

	_, err = NewFetcherBuilder().WithProvider(&fakeProvider{name: "x"}, false).WithMinDays(200).Build()
	assert.Error(t, err)
}

func TestBuildFetcherFromConfigSkipsAlphaVantageWithoutKey(t *testing.T) {
	cfg := datamodels.DefaultBotConfig()
	fetcher, err := BuildFetcherFromConfig(&cfg.Providers, &datamodels.Secrets{}, 120, time.UTC)
	require.NoError(t, err)
	require.Len(t, fetcher.entries, 1)
	assert.Equal(t, "yahoo", fetcher.entries[0].provider.GetName())

	fetcher, err = BuildFetcherFromConfig(&cfg.Providers, &datamodels.Secrets{AlphaVantageAPIKey: "k"}, 120, time.UTC)
	require.NoError(t, err)
	require.Len(t, fetcher.entries, 2)
	assert.True(t, fetcher.entries[1].allowPartial)
}

func TestBuildFetcherFromConfigMapsShareClassSymbols(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(yahooBody(130, false)))
	}))
	defer server.Close()

	cfg := datamodels.DefaultBotConfig()
	cfg.Providers.Order = []string{datamodels.ProviderYahoo}
	cfg.Providers.Yahoo.BaseURL = server.URL
	fetcher, err := BuildFetcherFromConfig(&cfg.Providers, nil, 120, time.UTC)
	require.NoError(t, err)

	_, err = fetcher.entries[0].provider.FetchBars(context.Background(), datamodels.StockInfo{Symbol: "BRK.B"})
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/BRK-B", gotPath)
}

func TestBuildFetcherFromConfigBadSymbolsFile(t *testing.T) {
	cfg := datamodels.DefaultBotConfig()
	cfg.Providers.SymbolsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err := BuildFetcherFromConfig(&cfg.Providers, nil, 120, time.UTC)
	assert.Error(t, err)
}
