package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stockbot/src/datamodels"
)

const alphaVantageCloseField = "4. close"

// AlphaVantageProvider reads TIME_SERIES_DAILY. The free tier is heavily rate limited,
// so requests go through a limiter.
type AlphaVantageProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	outputSize string
	limiter    *rate.Limiter
	location   *time.Location
}

type alphaVantageDailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
}

func NewAlphaVantageProvider(config datamodels.AlphaVantageConfig, apiKey string, location *time.Location) *AlphaVantageProvider {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perMinute := config.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 5
	}
	outputSize := config.OutputSize
	if outputSize == "" {
		outputSize = "compact"
	}
	if location == nil {
		location = time.UTC
	}
	return &AlphaVantageProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     apiKey,
		outputSize: outputSize,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		location:   location,
	}
}

func (p *AlphaVantageProvider) GetName() string {
	return datamodels.ProviderAlphaVantage
}

func (p *AlphaVantageProvider) FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	query := url.Values{}
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", stock.Symbol)
	query.Set("outputsize", p.outputSize)
	query.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/query?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// the request URL carries the API key
		return nil, fmt.Errorf("network error: %s", redactKey(err.Error(), p.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var daily alphaVantageDailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&daily); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch {
	case daily.ErrorMessage != "":
		return nil, fmt.Errorf("Alpha Vantage API error: %s", daily.ErrorMessage)
	case daily.Note != "":
		return nil, fmt.Errorf("Alpha Vantage rate limit reached: %s", daily.Note)
	case daily.Information != "" && len(daily.TimeSeries) == 0:
		return nil, fmt.Errorf("Alpha Vantage: %s", daily.Information)
	case len(daily.TimeSeries) == 0:
		return nil, fmt.Errorf("no time series data returned for %s", stock.Symbol)
	}

	bars := make([]datamodels.PriceBar, 0, len(daily.TimeSeries))
	for day, fields := range daily.TimeSeries {
		timestamp, err := time.ParseInLocation(datamodels.StateDateLayout, day, p.location)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", day, err)
		}
		closePrice, err := strconv.ParseFloat(fields[alphaVantageCloseField], 64)
		if err != nil {
			return nil, fmt.Errorf("bad close for %s: %w", day, err)
		}
		bars = append(bars, datamodels.PriceBar{Timestamp: timestamp, Close: closePrice})
	}
	return cleanBars(bars), nil
}

func redactKey(message, key string) string {
	if key == "" {
		return message
	}
	return strings.ReplaceAll(message, key, "***")
}
