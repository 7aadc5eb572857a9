package config

import (
	_ "embed"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stockbot/src/utils/errors"
)

//go:embed strategy_descriptions.yaml
var defaultStrategyDescriptions []byte

type StrategyDescription struct {
	Name         string            `yaml:"name"`
	Descriptions map[string]string `yaml:"descriptions"`
}

// StrategyDescriptions holds the human readable text shown in notification footers.
type StrategyDescriptions struct {
	Strategies map[string]StrategyDescription `yaml:"strategies"`
}

// LoadStrategyDescriptions parses the file at path, or the embedded defaults when path is empty.
func LoadStrategyDescriptions(path string) (*StrategyDescriptions, error) {
	data := defaultStrategyDescriptions
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read strategy descriptions %s", path)
		}
	}

	var descriptions StrategyDescriptions
	if err := yaml.Unmarshal(data, &descriptions); err != nil {
		return nil, errors.Wrap(err, "failed to decode strategy descriptions")
	}
	if descriptions.Strategies == nil {
		descriptions.Strategies = map[string]StrategyDescription{}
	}
	return &descriptions, nil
}

// Description returns the text for locale, falling back to English, or "" when the strategy is unknown.
func (d *StrategyDescriptions) Description(strategyKey, locale string) string {
	strategy, ok := d.Strategies[strategyKey]
	if !ok {
		slog.Warn("Strategy description not found", "strategy", strategyKey)
		return ""
	}
	text := strategy.Descriptions[locale]
	if text == "" {
		text = strategy.Descriptions["en"]
	}
	return strings.TrimSpace(text)
}

func (d *StrategyDescriptions) Name(strategyKey string) string {
	if strategy, ok := d.Strategies[strategyKey]; ok && strategy.Name != "" {
		return strategy.Name
	}
	return strategyKey
}
