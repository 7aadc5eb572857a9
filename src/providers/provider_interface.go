package providers

import (
	"context"
	"log/slog"
	"time"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
	"stockbot/src/utils/symbols"
)

// DataProvider returns daily closes for a symbol, oldest first.
type DataProvider interface {
	GetName() string
	FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error)
}

// BuildFetcherFromConfig wires providers in configured order. Alpha Vantage is skipped without an API key.
func BuildFetcherFromConfig(config *datamodels.ProvidersConfig, secrets *datamodels.Secrets,
	window int, location *time.Location) (*Fetcher, error) {

	dictionary, err := symbols.NewSymbolsDictionary(config.SymbolsFile)
	if err != nil {
		return nil, err
	}

	builder := NewFetcherBuilder().
		WithWindow(window).
		WithMinDays(config.MinDays).
		WithLocation(location)

	for _, name := range config.Order {
		switch name {
		case datamodels.ProviderYahoo:
			builder.WithProvider(withSymbols(NewYahooProvider(config.Yahoo, location), dictionary), false)
		case datamodels.ProviderAlphaVantage:
			if secrets == nil || secrets.AlphaVantageAPIKey == "" {
				slog.Info("Alpha Vantage API key not set, skipping provider")
				continue
			}
			builder.WithProvider(withSymbols(NewAlphaVantageProvider(config.AlphaVantage, secrets.AlphaVantageAPIKey, location), dictionary),
				config.AlphaVantage.AllowPartial)
		case datamodels.ProviderCsv:
			builder.WithProvider(NewCsvProvider(config.Csv, location), false)
		default:
			return nil, errors.Newf("unknown provider %q", name)
		}
	}

	return builder.Build()
}

// symbolMappedProvider asks the wrapped provider for its own spelling of the ticker.
type symbolMappedProvider struct {
	DataProvider
	dictionary *symbols.SymbolsDictionary
}

func withSymbols(provider DataProvider, dictionary *symbols.SymbolsDictionary) DataProvider {
	return &symbolMappedProvider{DataProvider: provider, dictionary: dictionary}
}

func (p *symbolMappedProvider) FetchBars(ctx context.Context, stock datamodels.StockInfo) ([]datamodels.PriceBar, error) {
	stock.Symbol = p.dictionary.ForProvider(p.GetName(), stock.Symbol)
	return p.DataProvider.FetchBars(ctx, stock)
}
