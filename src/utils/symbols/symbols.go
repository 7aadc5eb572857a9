package symbols

import (
	"encoding/json"
	"os"
	"strings"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

// SymbolsDictionary translates configured tickers into the form each data provider expects.
// Share classes are written with a dot (BRK.B); Yahoo wants a dash (BRK-B).
type SymbolsDictionary struct {
	overrides map[string]map[string]string
}

// NewSymbolsDictionary loads per-provider overrides from a JSON file shaped like
// {"BRK.B": {"alpha_vantage": "BRK-B"}}. An empty path keeps only the built-in rules.
func NewSymbolsDictionary(path string) (*SymbolsDictionary, error) {
	dictionary := &SymbolsDictionary{overrides: make(map[string]map[string]string)}
	if path == "" {
		return dictionary, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open symbols file")
	}
	defer file.Close()

	raw := make(map[string]map[string]string)
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse symbols file")
	}
	for symbol, providers := range raw {
		dictionary.overrides[strings.ToUpper(symbol)] = providers
	}
	return dictionary, nil
}

func (d *SymbolsDictionary) ForProvider(provider, symbol string) string {
	if mapped, ok := d.overrides[strings.ToUpper(symbol)][provider]; ok {
		return mapped
	}
	if provider == datamodels.ProviderYahoo {
		return strings.ReplaceAll(symbol, ".", "-")
	}
	return symbol
}
