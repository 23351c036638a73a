// Package config provides fail-open environment loaders and validators
// shared by the worker and pipeline configuration.
//
// Loaders never fail: an unset variable yields the default silently, and an
// invalid one yields the default together with a warning describing why.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one environment variable.
type LoadResult[T any] struct {
	Value T
	// Warning describes why the raw value was rejected. Empty unless
	// FallbackApplied is set.
	Warning         string
	FallbackApplied bool
}

// LoadEnvString returns the variable or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		return value
	}
	return defaultValue
}

// load parses and validates envKey, falling back to defaultValue.
func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	parsed, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(parsed)
	}
	if err != nil {
		return LoadResult[T]{
			Value:           defaultValue,
			Warning:         fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}
	return LoadResult[T]{Value: parsed}
}

// LoadEnvWithFallback loads a string checked by validator.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvDuration loads a Go duration string such as "10m".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvSeconds loads a duration given as whole seconds ("5"). A Go
// duration string is accepted as well.
func LoadEnvSeconds(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return load(envKey, defaultValue, func(s string) (time.Duration, error) {
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return time.ParseDuration(s)
	}, validator)
}

var falsy = map[string]bool{"false": true, "0": true, "no": true, "n": true}

// LoadEnvFlag reads an opt-out switch. Any value other than false, 0, no or
// n (case-insensitive) enables it.
func LoadEnvFlag(envKey string, defaultValue bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))
	if raw == "" {
		return defaultValue
	}
	return !falsy[raw]
}

// LoadEnvStrictBool reads an opt-in switch: only "true" enables it.
func LoadEnvStrictBool(envKey string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) == "true"
}
