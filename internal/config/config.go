// Package config loads the optional per-project settings file
// (.variant-layer/config.toml).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrValidation wraps settings validation failures, as opposed to TOML syntax
// or filesystem errors. Callers use errors.Is to distinguish the two.
var ErrValidation = errors.New("settings validation failed")

// Settings is the parsed config.toml. Every field is optional; zero values
// mean "use the built-in default".
type Settings struct {
	Warnings  WarningsSettings  `toml:"warnings"`
	Artifacts ArtifactsSettings `toml:"artifacts"`
	Diff      DiffSettings      `toml:"diff"`
}

// WarningsSettings controls terminal warning output.
type WarningsSettings struct {
	// NoiseMode is "quiet" to suppress non-fatal warnings, or empty/"normal".
	NoiseMode string `toml:"noise_mode"`
}

// ArtifactsSettings overrides where variant distributions are looked up.
type ArtifactsSettings struct {
	Dir string `toml:"dir"`
}

// DiffSettings tunes plan output.
type DiffSettings struct {
	MaxLines int `toml:"max_lines"`
}

// Quiet reports whether non-fatal warnings should be suppressed.
func (s *Settings) Quiet() bool {
	return strings.EqualFold(strings.TrimSpace(s.Warnings.NoiseMode), "quiet")
}

// Load reads and validates settings from path. A missing file yields default
// settings, not an error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses and validates settings TOML. source is used in error messages.
func Parse(data []byte, source string) (*Settings, error) {
	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf("%w: unrecognized keys in %s: %v", ErrValidation, source, err)
	}
	if err := settings.validate(source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &settings, nil
}

// LoadLenient reads settings without validation, returning defaults on any
// problem. Suitable for read paths that must never fail (e.g. deciding quiet
// mode before error reporting is set up).
func LoadLenient(path string) *Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Settings{}
	}
	var settings Settings
	if err := toml.Unmarshal(data, &settings); err != nil {
		return &Settings{}
	}
	return &settings
}

// decodeStrict re-decodes with unknown-field rejection, catching keys the
// permissive pass silently ignores.
func decodeStrict(data []byte) error {
	var settings Settings
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&settings)
}

func (s *Settings) validate(source string) error {
	switch strings.ToLower(strings.TrimSpace(s.Warnings.NoiseMode)) {
	case "", "normal", "quiet":
	default:
		return fmt.Errorf("%s: warnings.noise_mode must be \"normal\" or \"quiet\", got %q", source, s.Warnings.NoiseMode)
	}
	if s.Diff.MaxLines < 0 {
		return fmt.Errorf("%s: diff.max_lines must be non-negative, got %d", source, s.Diff.MaxLines)
	}
	return nil
}
