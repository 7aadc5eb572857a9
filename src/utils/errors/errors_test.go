//go:build unit

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedErrorsMatchSentinels(t *testing.T) {
	cause := fmt.Errorf("disk full")

	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"wrap", Wrap(ErrDataUnavailable, "SPY"), ErrDataUnavailable},
		{"wrapf", Wrapf(ErrStateCorrupt, "record %s", "AAPL"), ErrStateCorrupt},
		{"wrapE static", WrapE(ErrPersistenceFailure, cause), ErrPersistenceFailure},
		{"wrapE cause", WrapE(ErrPersistenceFailure, cause), cause},
		{"wrapef static", Wrapef(ErrPersistenceFailure, cause, "rename %s", "signals.json"), ErrPersistenceFailure},
		{"wrapef cause", Wrapef(ErrPersistenceFailure, cause, "rename %s", "signals.json"), cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.target))
			assert.Contains(t, tt.err.Error(), "errors_test.go")
		})
	}
}

func TestNewIncludesCallerLocation(t *testing.T) {
	err := Newf("bad threshold %.2f", 1.5)
	assert.Contains(t, err.Error(), "errors_test.go")
	assert.Contains(t, err.Error(), "bad threshold 1.50")
	assert.False(t, Is(err, ErrStateCorrupt))
}

func TestJoinDropsNil(t *testing.T) {
	assert.Nil(t, Join(nil, nil))
	joined := Join(nil, ErrDataUnavailable)
	assert.True(t, Is(joined, ErrDataUnavailable))
}
