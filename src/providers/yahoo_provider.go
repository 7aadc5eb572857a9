package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockbot/src/datamodels"
)

const yahooUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// YahooProvider reads daily closes from the Yahoo Finance chart API.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
	dataRange  string
	location   *time.Location
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func NewYahooProvider(config datamodels.YahooConfig, location *time.Location) *YahooProvider {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dataRange := config.Range
	if dataRange == "" {
		dataRange = "1y"
	}
	if location == nil {
		location = time.UTC
	}
	return &YahooProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		dataRange:  dataRange,
		location:   location,
	}
}

func (p *YahooProvider) GetName() string {
	return datamodels.ProviderYahoo
}

func (p *YahooProvider) FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error) {
	query := url.Values{}
	query.Set("range", p.dataRange)
	query.Set("interval", "1d")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(stock.Symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	var chart yahooChartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chart)

	if decodeErr == nil && chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for %s", stock.Symbol)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quotes returned for %s", stock.Symbol)
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("malformed response: %d timestamps, %d closes", len(result.Timestamp), len(closes))
	}

	bars := make([]datamodels.PriceBar, 0, len(closes))
	for i, closePrice := range closes {
		// halted or in-progress sessions come back as null
		if closePrice == nil {
			continue
		}
		bars = append(bars, datamodels.PriceBar{
			Timestamp: time.Unix(result.Timestamp[i], 0).In(p.location),
			Close:     *closePrice,
		})
	}
	return bars, nil
}
