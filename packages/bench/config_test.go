package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Thresholds
	}{
		{"p95", "p95<200ms", Thresholds{P95: 200 * time.Millisecond}},
		{"p50 and p99", "p50<=50ms, p99<1s", Thresholds{P50: 50 * time.Millisecond, P99: time.Second}},
		{"max", "max<2s", Thresholds{MaxLatency: 2 * time.Second}},
		{"error percent", "errors<0.1%", Thresholds{ErrorRate: 0.001}},
		{"error fraction", "errors<0.05", Thresholds{ErrorRate: 0.05}},
		{"rps", "rps>100", Thresholds{MinRPS: 100}},
		{"combined", "p95<200ms,errors<1%,rps>=10", Thresholds{P95: 200 * time.Millisecond, ErrorRate: 0.01, MinRPS: 10}},
		{"empty", "", Thresholds{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThresholds(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected.ErrorRate, got.ErrorRate, 1e-9)
			got.ErrorRate = tt.expected.ErrorRate
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseThresholds_Invalid(t *testing.T) {
	tests := []string{
		"p95",
		"p95<fast",
		"p95>200ms",
		"errors>1%",
		"rps<10",
		"latency<1s",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseThresholds(input)
			assert.Error(t, err)
		})
	}
}

func TestHasThresholds(t *testing.T) {
	assert.False(t, (&Thresholds{}).HasThresholds())
	assert.True(t, (&Thresholds{MinRPS: 1}).HasThresholds())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		config Config
	}{
		{"no requests", Config{Requests: 0, Concurrency: 1}},
		{"no concurrency", Config{Requests: 1, Concurrency: 0}},
		{"negative rate", Config{Requests: 1, Concurrency: 1, Rate: -1}},
		{"negative duration", Config{Requests: 1, Concurrency: 1, Duration: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.config.Validate())
		})
	}
}
