package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

const DefaultLocale = "en"

//go:embed locales/*.json
var localeFiles embed.FS

// Translator looks up dotted keys in a locale's message tree.
// Keys missing from the locale fall back to English.
type Translator struct {
	locale   string
	messages map[string]any
	fallback map[string]any
}

func NewTranslator(locale string) *Translator {
	fallback, err := loadMessages(DefaultLocale)
	if err != nil {
		slog.Error("Failed to load default locale", "error", err)
		fallback = map[string]any{}
	}

	if locale == "" || locale == DefaultLocale {
		return &Translator{locale: DefaultLocale, messages: fallback, fallback: fallback}
	}

	messages, err := loadMessages(locale)
	if err != nil {
		slog.Warn("Locale not available, falling back to English", "locale", locale, "error", err)
		return &Translator{locale: DefaultLocale, messages: fallback, fallback: fallback}
	}
	slog.Debug("Loaded locale", "locale", locale)
	return &Translator{locale: locale, messages: messages, fallback: fallback}
}

func AvailableLocales() []string {
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil
	}
	locales := make([]string, 0, len(entries))
	for _, entry := range entries {
		locales = append(locales, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return locales
}

func (t *Translator) Locale() string {
	return t.locale
}

// Get returns the message for key with {name} placeholders replaced from name/value pairs.
// Unknown keys render as "[Missing: key]".
func (t *Translator) Get(key string, args ...any) string {
	value, ok := lookup(t.messages, key)
	if !ok {
		value, ok = lookup(t.fallback, key)
	}
	if !ok {
		slog.Error("Translation key not found", "key", key, "locale", t.locale)
		return fmt.Sprintf("[Missing: %s]", key)
	}

	text, isString := value.(string)
	if !isString {
		return fmt.Sprint(value)
	}
	if len(args) == 0 {
		return text
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, fmt.Sprintf("{%v}", args[i]), fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func loadMessages(locale string) (map[string]any, error) {
	data, err := localeFiles.ReadFile(fmt.Sprintf("locales/%s.json", locale))
	if err != nil {
		return nil, err
	}
	messages := map[string]any{}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode locale %s: %w", locale, err)
	}
	return messages, nil
}

func lookup(messages map[string]any, key string) (any, bool) {
	var current any = messages
	for _, part := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
