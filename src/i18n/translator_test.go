//go:build unit

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatorGet(t *testing.T) {
	translator := NewTranslator("en")

	tests := []struct {
		name string
		key  string
		args []any
		want string
	}{
		{"plain", "summary.date", nil, "Date"},
		{"placeholder", "buy_signal.signal_2_will_trigger", []any{"price", "$68.00"}, "Signal 2 will trigger at $68.00"},
		{"two placeholders", "buy_signal.below_ma", []any{"pct", "15.00", "window", 120}, "15.00% below MA120"},
		{"missing key", "summary.nope", nil, "[Missing: summary.nope]"},
		{"key into leaf", "summary.date.more", nil, "[Missing: summary.date.more]"},
		{"non string node", "signal_names", nil, "map[FIRST:Signal 1 SECOND:Signal 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translator.Get(tt.key, tt.args...))
		})
	}
}

func TestTranslatorLocaleFallback(t *testing.T) {
	translator := NewTranslator("fr")
	assert.Equal(t, "en", translator.Locale())
	assert.Equal(t, "Date", translator.Get("summary.date"))

	translator = NewTranslator("")
	assert.Equal(t, "en", translator.Locale())
}

func TestTranslatorChinese(t *testing.T) {
	translator := NewTranslator("zh_CN")
	assert.Equal(t, "zh_CN", translator.Locale())
	assert.Equal(t, "日期", translator.Get("summary.date"))
	assert.Equal(t, "信号 2 将在 $68.00 触发", translator.Get("buy_signal.signal_2_will_trigger", "price", "$68.00"))
}

func TestLocalesShareKeys(t *testing.T) {
	english, err := loadMessages("en")
	assert.NoError(t, err)

	for _, locale := range AvailableLocales() {
		messages, err := loadMessages(locale)
		assert.NoError(t, err, locale)
		assert.ElementsMatch(t, flattenKeys("", english), flattenKeys("", messages), locale)
	}
}

func flattenKeys(prefix string, node map[string]any) []string {
	var keys []string
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			keys = append(keys, flattenKeys(full, child)...)
			continue
		}
		keys = append(keys, full)
	}
	return keys
}
