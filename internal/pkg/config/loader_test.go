package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("TEST_STRING", "custom_value")
	assert.Equal(t, "custom_value", LoadEnvString("TEST_STRING", "default_value"))

	t.Setenv("TEST_STRING", "   ")
	assert.Equal(t, "default_value", LoadEnvString("TEST_STRING", "default_value"))

	assert.Equal(t, "default_value", LoadEnvString("TEST_STRING_UNSET", "default_value"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		t.Setenv("TEST_CRON", "0 7 * * *")
		result := LoadEnvWithFallback("TEST_CRON", "0 6 * * *", ValidateCronSchedule)
		assert.Equal(t, "0 7 * * *", result.Value)
		assert.Empty(t, result.Warning)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("unset uses default without warning", func(t *testing.T) {
		result := LoadEnvWithFallback("TEST_CRON_UNSET", "0 6 * * *", ValidateCronSchedule)
		assert.Equal(t, "0 6 * * *", result.Value)
		assert.False(t, result.FallbackApplied)
	})

	t.Run("invalid value falls back with warning", func(t *testing.T) {
		t.Setenv("TEST_CRON", "every morning")
		result := LoadEnvWithFallback("TEST_CRON", "0 6 * * *", ValidateCronSchedule)
		assert.Equal(t, "0 6 * * *", result.Value)
		assert.True(t, result.FallbackApplied)
		assert.Contains(t, result.Warning, "TEST_CRON='every morning'")
		assert.Contains(t, result.Warning, "falling back to default '0 6 * * *'")
	})

	t.Run("nil validator accepts anything", func(t *testing.T) {
		t.Setenv("TEST_ANY", "whatever")
		result := LoadEnvWithFallback("TEST_ANY", "x", nil)
		assert.Equal(t, "whatever", result.Value)
	})
}

func TestLoadEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		want     int
		fallback bool
	}{
		{"valid", "7", 7, false},
		{"below range", "0", 3, true},
		{"above range", "11", 3, true},
		{"not a number", "three", 3, true},
		{"trailing garbage", "5x", 3, true},
		{"unset", "", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			result := LoadEnvInt("TEST_INT", 3, func(v int) error { return ValidateIntRange(v, 1, 10) })
			assert.Equal(t, tt.want, result.Value)
			assert.Equal(t, tt.fallback, result.FallbackApplied)
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	validate := func(d time.Duration) error { return ValidateDuration(d, time.Minute, time.Hour) }

	t.Setenv("TEST_DURATION", "15m")
	assert.Equal(t, 15*time.Minute, LoadEnvDuration("TEST_DURATION", 10*time.Minute, validate).Value)

	t.Setenv("TEST_DURATION", "2h")
	result := LoadEnvDuration("TEST_DURATION", 10*time.Minute, validate)
	assert.Equal(t, 10*time.Minute, result.Value)
	assert.True(t, result.FallbackApplied)

	t.Setenv("TEST_DURATION", "soon")
	assert.True(t, LoadEnvDuration("TEST_DURATION", 10*time.Minute, validate).FallbackApplied)
}

func TestLoadEnvSeconds(t *testing.T) {
	validate := func(d time.Duration) error { return ValidateDuration(d, 0, 300*time.Second) }

	t.Setenv("TEST_SECONDS", "12")
	assert.Equal(t, 12*time.Second, LoadEnvSeconds("TEST_SECONDS", 5*time.Second, validate).Value)

	t.Setenv("TEST_SECONDS", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, LoadEnvSeconds("TEST_SECONDS", 5*time.Second, validate).Value)

	t.Setenv("TEST_SECONDS", "301")
	result := LoadEnvSeconds("TEST_SECONDS", 5*time.Second, validate)
	assert.Equal(t, 5*time.Second, result.Value)
	assert.True(t, result.FallbackApplied)
}

func TestLoadEnvFlag(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"false", true, false},
		{"FALSE", true, false},
		{"0", true, false},
		{"no", true, false},
		{" N ", true, false},
		{"true", false, true},
		{"yes", false, true},
		{"off", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_FLAG", tt.value)
			assert.Equal(t, tt.want, LoadEnvFlag("TEST_FLAG", tt.def))
		})
	}
}

func TestLoadEnvStrictBool(t *testing.T) {
	for value, want := range map[string]bool{"true": true, " True ": true, "1": false, "yes": false, "": false} {
		t.Setenv("TEST_STRICT", value)
		assert.Equal(t, want, LoadEnvStrictBool("TEST_STRICT"), "value %q", value)
	}
}
