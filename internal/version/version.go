// Package version normalizes the installer's own semver strings.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize validates a semver string and returns it without a leading "v".
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("version is empty")
	}
	candidate := trimmed
	if !strings.HasPrefix(candidate, "v") {
		candidate = "v" + candidate
	}
	if !semver.IsValid(candidate) {
		return "", fmt.Errorf("invalid version %q", raw)
	}
	return strings.TrimPrefix(semver.Canonical(candidate), "v"), nil
}

// IsDev reports whether the build version is a development placeholder.
func IsDev(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == "dev" || trimmed == "unknown"
}
