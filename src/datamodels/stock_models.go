package datamodels

import (
	"fmt"
	"time"

	"stockbot/src/utils/errors"
)

type StockCategory string

const (
	StockCategoryIndex StockCategory = "index"
	StockCategoryMag7  StockCategory = "mag7"
)

// StockInfo is a configured symbol.
type StockInfo struct {
	Symbol   string        `mapstructure:"symbol" json:"symbol"`
	Name     string        `mapstructure:"name" json:"name"`
	Category StockCategory `mapstructure:"category" json:"category"`
}

func DefaultStocks() []StockInfo {
	return []StockInfo{
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF", Category: StockCategoryIndex},
		{Symbol: "AAPL", Name: "Apple Inc.", Category: StockCategoryMag7},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Category: StockCategoryMag7},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Category: StockCategoryMag7},
		{Symbol: "AMZN", Name: "Amazon.com Inc.", Category: StockCategoryMag7},
		{Symbol: "NVDA", Name: "NVIDIA Corporation", Category: StockCategoryMag7},
		{Symbol: "META", Name: "Meta Platforms Inc.", Category: StockCategoryMag7},
		{Symbol: "TSLA", Name: "Tesla Inc.", Category: StockCategoryMag7},
	}
}

// PriceBar is one daily close.
type PriceBar struct {
	Timestamp time.Time
	Close     float64
}

// StockObservation is the market snapshot of one symbol for one run.
type StockObservation struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	CurrentPrice  float64   `json:"current_price"`
	MovingAverage float64   `json:"moving_average"`
	Timestamp     time.Time `json:"timestamp"`
	DaysOfData    int       `json:"days_of_data"`
	Provider      string    `json:"provider"`
}

// DeviationPct is the percent distance of the price from the moving average.
func (o StockObservation) DeviationPct() float64 {
	return (o.CurrentPrice - o.MovingAverage) / o.MovingAverage * 100
}

func (o StockObservation) Validate() error {
	if o.Symbol == "" {
		return errors.New("observation symbol is empty")
	}
	if o.CurrentPrice <= 0 {
		return errors.Newf("%s: current price must be positive, got %f", o.Symbol, o.CurrentPrice)
	}
	if o.MovingAverage <= 0 {
		return errors.Newf("%s: moving average must be positive, got %f", o.Symbol, o.MovingAverage)
	}
	return nil
}

// FetchError describes why market data for a symbol could not be obtained.
type FetchError struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Symbol, e.Provider, e.Message)
}

func (e *FetchError) Unwrap() error {
	return errors.ErrDataUnavailable
}

// SymbolIssue is a per-symbol problem that did not stop the run, such as a failed save.
type SymbolIssue struct {
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}
