package notifications

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"stockbot/src/config"
	"stockbot/src/datamodels"
	"stockbot/src/i18n"
)

const timestampLayout = "2006-01-02 15:04 MST"

var separator = strings.Repeat("─", 40)

// MessageFormatter renders run results as Telegram Markdown.
type MessageFormatter struct {
	t              *i18n.Translator
	descriptions   *config.StrategyDescriptions
	strategy       datamodels.StrategyConfig
	approachingPct float64
	closestPct     float64
	location       *time.Location
}

func NewMessageFormatter(
	translator *i18n.Translator,
	descriptions *config.StrategyDescriptions,
	strategy datamodels.StrategyConfig,
	markers datamodels.NotificationsConfig,
	location *time.Location,
) *MessageFormatter {
	if location == nil {
		location = time.UTC
	}
	return &MessageFormatter{
		t:              translator,
		descriptions:   descriptions,
		strategy:       strategy,
		approachingPct: markers.ApproachingTriggerPct,
		closestPct:     markers.ClosestToTriggerPct,
		location:       location,
	}
}

// BuildMessageFormatter wires the translator and strategy descriptions named in config.
func BuildMessageFormatter(botConfig *datamodels.BotConfig) (*MessageFormatter, error) {
	descriptions, err := config.LoadStrategyDescriptions(botConfig.Notifications.DescriptionsPath)
	if err != nil {
		return nil, err
	}
	return NewMessageFormatter(
		i18n.NewTranslator(botConfig.App.Locale),
		descriptions,
		botConfig.Strategy,
		botConfig.Notifications,
		botConfig.App.Location(),
	), nil
}

// FormatSummary renders the single message sent at the end of a run.
func (f *MessageFormatter) FormatSummary(
	runTime time.Time,
	signals []datamodels.Signal,
	observations []datamodels.StockObservation,
	fetchErrors []datamodels.FetchError,
	issues []datamodels.SymbolIssue,
) string {
	lines := []string{
		f.t.Get("summary.title"),
		"",
		fmt.Sprintf("%s: %s", f.t.Get("summary.date"), f.timestamp(runTime)),
		fmt.Sprintf("%s: %d", f.t.Get("summary.signals_generated"), len(signals)),
		"",
	}

	if len(signals) == 0 {
		lines = append(lines, f.t.Get("summary.no_signals"))
		if len(observations) > 0 {
			lines = append(lines, "", f.t.Get("summary.status_title"), "")
			for _, observation := range observations {
				lines = append(lines, f.statusLine(observation))
			}
		}
	} else {
		lines = append(lines, separator)
		for i, signal := range signals {
			lines = append(lines, f.signalSummaryLines(i+1, signal)...)
			lines = append(lines, separator)
		}
	}

	if len(fetchErrors) > 0 {
		lines = append(lines, "", f.t.Get("summary.fetch_errors_title"), "")
		for _, fetchError := range fetchErrors {
			lines = append(lines,
				fmt.Sprintf("• *%s* (%s):", fetchError.Symbol, fetchError.Name),
				fmt.Sprintf("  `%s`", fetchError.Message),
			)
		}
	}

	if len(issues) > 0 {
		lines = append(lines, "", f.t.Get("summary.issues_title"), "")
		for _, issue := range issues {
			lines = append(lines, fmt.Sprintf("• *%s*: `%s`", issue.Symbol, issue.Message))
		}
	}

	lines = append(lines, "", f.footer())
	return strings.Join(lines, "\n")
}

// FormatSignal renders one signal in full detail.
func (f *MessageFormatter) FormatSignal(signal datamodels.Signal) string {
	if signal.SignalType == datamodels.SignalTypeSecond {
		return f.formatSecondSignal(signal)
	}
	return f.formatFirstSignal(signal)
}

func (f *MessageFormatter) FormatError(message string) string {
	return strings.Join([]string{
		f.t.Get("notification.error_title"),
		"",
		f.t.Get("notification.error_details"),
		"",
		fmt.Sprintf("```\n%s\n```", message),
		"",
		f.t.Get("notification.check_logs"),
	}, "\n")
}

func (f *MessageFormatter) formatFirstSignal(signal datamodels.Signal) string {
	window := f.strategy.MovingAverageWindow
	nextSignal := datamodels.Signal{PositionSize: f.strategy.SecondPositionSize}

	return strings.Join([]string{
		f.t.Get("buy_signal.title"),
		"",
		fmt.Sprintf("%s: %s (%s)", f.t.Get("buy_signal.stock_label"), signal.Symbol, signal.Name),
		fmt.Sprintf("%s: %s", f.t.Get("buy_signal.signal_type_label"),
			f.t.Get("buy_signal.signal_1_subtitle", "threshold", dropPct(f.strategy.FirstThreshold), "window", window)),
		"",
		f.t.Get("sections.current_metrics"),
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.current_price"), money(signal.CurrentPrice)),
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.ma_value", "window", window), money(signal.MovingAverage)),
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.deviation"),
			f.t.Get("buy_signal.below_ma", "pct", fmt.Sprintf("%.2f", math.Abs(signal.DeviationPct)), "window", window)),
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.date"), f.timestamp(signal.Timestamp)),
		"",
		f.t.Get("sections.recommendation"),
		fmt.Sprintf("• %s: %s %s", f.t.Get("buy_signal.position_size"), signal.PositionSizeDisplay(),
			f.t.Get("buy_signal.of_allocated_capital")),
		"",
		f.t.Get("sections.next_steps"),
		fmt.Sprintf("• %s", f.t.Get("buy_signal.signal_2_will_trigger",
			"price", money(signal.CurrentPrice*f.strategy.SecondThreshold))),
		fmt.Sprintf("  %s", f.t.Get("buy_signal.signal_2_additional_drop", "threshold", dropPct(f.strategy.SecondThreshold))),
		fmt.Sprintf("• %s", f.t.Get("buy_signal.signal_2_additional_position", "size", nextSignal.PositionSizeDisplay())),
	}, "\n")
}

func (f *MessageFormatter) formatSecondSignal(signal datamodels.Signal) string {
	lines := []string{
		f.t.Get("buy_signal.title"),
		"",
		fmt.Sprintf("%s: %s (%s)", f.t.Get("buy_signal.stock_label"), signal.Symbol, signal.Name),
		fmt.Sprintf("%s: %s", f.t.Get("buy_signal.signal_type_label"),
			f.t.Get("buy_signal.signal_2_subtitle", "threshold", dropPct(f.strategy.SecondThreshold))),
		"",
		f.t.Get("sections.current_metrics"),
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.current_price"), money(signal.CurrentPrice)),
	}
	if signal.FirstSignalPrice != nil {
		firstPrice := *signal.FirstSignalPrice
		drop := math.Abs((signal.CurrentPrice - firstPrice) / firstPrice * 100)
		lines = append(lines,
			fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.first_price"), money(firstPrice)),
			fmt.Sprintf("• %s: %.2f%%", f.t.Get("buy_signal.additional_drop"), drop),
		)
	}
	lines = append(lines,
		fmt.Sprintf("• %s: %s", f.t.Get("buy_signal.date"), f.timestamp(signal.Timestamp)),
		"",
		f.t.Get("sections.recommendation"),
		fmt.Sprintf("• %s: %s %s", f.t.Get("buy_signal.position_size"), signal.PositionSizeDisplay(),
			f.t.Get("buy_signal.of_allocated_capital")),
		"",
		f.t.Get("sections.next_steps"),
		fmt.Sprintf("• %s", f.t.Get("buy_signal.both_signals_complete")),
	)
	return strings.Join(lines, "\n")
}

func (f *MessageFormatter) signalSummaryLines(index int, signal datamodels.Signal) []string {
	lines := []string{
		"",
		fmt.Sprintf("*%d. %s* (%s)", index, signal.Symbol, signal.Name),
		fmt.Sprintf("   %s: %s", f.t.Get("summary.signal_type"), f.t.Get("signal_names."+string(signal.SignalType))),
		fmt.Sprintf("   %s: %s", f.t.Get("summary.price"), money(signal.CurrentPrice)),
	}
	if signal.SignalType == datamodels.SignalTypeFirst {
		lines = append(lines, fmt.Sprintf("   MA%d: %s (%.2f%% %s)", f.strategy.MovingAverageWindow,
			money(signal.MovingAverage), math.Abs(signal.DeviationPct), f.t.Get("summary.below")))
	} else if signal.FirstSignalPrice != nil {
		lines = append(lines, fmt.Sprintf("   %s: %s", f.t.Get("buy_signal.first_price"), money(*signal.FirstSignalPrice)))
	}
	lines = append(lines, fmt.Sprintf("   %s: %s", f.t.Get("summary.position"), signal.PositionSizeDisplay()))
	return lines
}

func (f *MessageFormatter) statusLine(observation datamodels.StockObservation) string {
	deviation := observation.DeviationPct()
	direction := f.t.Get("summary.below")
	if deviation > 0 {
		direction = f.t.Get("summary.above")
	}
	return fmt.Sprintf("• *%s*: %s (%.2f%% %s MA%d)%s", observation.Symbol, money(observation.CurrentPrice),
		math.Abs(deviation), direction, f.strategy.MovingAverageWindow, f.marker(deviation))
}

// marker flags symbols whose deviation is nearing the first threshold.
func (f *MessageFormatter) marker(deviation float64) string {
	switch {
	case deviation < f.closestPct:
		return " " + f.t.Get("summary.closest_marker")
	case deviation < f.approachingPct:
		return " " + f.t.Get("summary.approaching_marker")
	default:
		return ""
	}
}

func (f *MessageFormatter) footer() string {
	lines := []string{
		separator,
		fmt.Sprintf("_%s_", f.t.Get("summary.footer")),
	}
	if f.descriptions == nil {
		return strings.Join(lines, "\n")
	}
	description := f.descriptions.Description(f.strategy.Type, f.t.Locale())
	if description != "" {
		lines = append(lines, "", f.t.Get("summary.strategy_info"))
		for _, line := range strings.Split(description, "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (f *MessageFormatter) timestamp(t time.Time) string {
	return t.In(f.location).Format(timestampLayout)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// dropPct turns a price ratio such as 0.85 into the percentage drop "15".
func dropPct(ratio float64) string {
	return strconv.FormatFloat(math.Round((1-ratio)*10000)/100, 'f', -1, 64)
}
