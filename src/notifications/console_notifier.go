package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ConsoleNotifier prints messages instead of delivering them.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier writes to out, or stdout when out is nil.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) GetName() string {
	return "console"
}

func (n *ConsoleNotifier) Send(ctx context.Context, text string) bool {
	rule := strings.Repeat("=", 60)
	if _, err := fmt.Fprintf(n.out, "%s\n%s\n%s\n", rule, text, rule); err != nil {
		slog.Error("Failed to print notification", "error", err)
		return false
	}
	return true
}
