package geometry

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// EnvScaleFactor overrides both the config file and the windowing system.
const EnvScaleFactor = "STICKY_SCALE_FACTOR"

// DefaultScaleFactor is used when the windowing system reports nothing useful.
const DefaultScaleFactor = 1.0

var ErrInvalidScaleFactor = errors.New("invalid scale factor")

// ConfigErrorKind identifies the configuration value that was rejected.
type ConfigErrorKind int

const (
	InvalidScaleFactor ConfigErrorKind = iota
)

// ConfigError reports a malformed configuration value.
type ConfigError struct {
	Kind  ConfigErrorKind
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v %q: %v", ErrInvalidScaleFactor, e.Value, e.Err)
	}
	return fmt.Sprintf("%v %q", ErrInvalidScaleFactor, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidScaleFactor && e.Kind == InvalidScaleFactor
}

// ParseScaleFactor accepts a positive, finite float.
func ParseScaleFactor(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &ConfigError{Kind: InvalidScaleFactor, Value: raw, Err: err}
	}
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, &ConfigError{Kind: InvalidScaleFactor, Value: raw, Err: errors.New("must be a positive finite number")}
	}
	return f, nil
}

// ScaleSource decides where a window's scale factor comes from.
type ScaleSource struct {
	Override    string
	HasOverride bool
}

// NewScaleSource builds a source from the environment, falling back to the
// configured value. Empty values mean no override.
func NewScaleSource(configured string) ScaleSource {
	if v, ok := os.LookupEnv(EnvScaleFactor); ok && v != "" {
		return ScaleSource{Override: v, HasOverride: true}
	}
	if strings.TrimSpace(configured) != "" {
		return ScaleSource{Override: configured, HasOverride: true}
	}
	return ScaleSource{}
}

// Validate reports a malformed override without querying anything.
func (s ScaleSource) Validate() error {
	if !s.HasOverride {
		return nil
	}
	_, err := ParseScaleFactor(s.Override)
	return err
}

// Resolve returns the override when present, otherwise the live value from
// query. A malformed override is an error; it never falls through to query.
func (s ScaleSource) Resolve(query func() (float64, error)) (float64, error) {
	if s.HasOverride {
		return ParseScaleFactor(s.Override)
	}
	if query == nil {
		return DefaultScaleFactor, nil
	}

	f, err := query()
	if err != nil {
		return 0, fmt.Errorf("failed to query scale factor: %w", err)
	}
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return DefaultScaleFactor, nil
	}
	return f, nil
}
