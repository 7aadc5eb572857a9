package general

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GetCurrentFilepath() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filename)
}

func GetCurrentDir() string {
	return filepath.Dir(GetCurrentFilepath())
}

// GetRepoRoot returns the module root, two levels above src/utils.
func GetRepoRoot() string {
	return filepath.Join(GetCurrentDir(), "..", "..")
}

func GenerateUUID5StringFromByteArray(p []byte) string {
	UUID5Namespace := "f1c8f8d4-1a8e-4b2c-9d3f-5e6c7b8a9d0c"

	namespaceUUID, err := uuid.Parse(UUID5Namespace)
	if err != nil {
		slog.Warn(fmt.Sprintf("Error parsing namespace UUID: %+v", err))
	}
	uuid5 := uuid.NewSHA1(namespaceUUID, p)
	return uuid5.String()
}

// NewRunId derives a stable id for a run from its start time and symbols.
func NewRunId(runTime time.Time, symbols []string) string {
	key := fmt.Sprintf("%s|%s", runTime.UTC().Format(time.RFC3339Nano), strings.Join(symbols, ","))
	return GenerateUUID5StringFromByteArray([]byte(key))
}

// IsValidURL checks if a string is a valid URL with allowed schemes
func IsValidURL(rawURL string) (bool, string) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false, "URL is empty"
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Sprintf("Invalid URL format: %v", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		return false, "URL scheme is missing"
	}

	if parsedURL.Host == "" {
		return false, "URL host is missing"
	}

	return true, ""
}

func ItemInSlice[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func NoDuplicateItemsInSlice[T comparable](slice []T) bool {
	seen := make(map[T]bool)
	for _, item := range slice {
		if seen[item] {
			return false
		}
		seen[item] = true
	}
	return true
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}
