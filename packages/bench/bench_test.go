package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
	"github.com/abdul-hamid-achik/hitfetch/packages/mock"
)

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(mock.NewServer(mock.WithRoutes(mock.Fixtures()...)).Handler())
	t.Cleanup(server.Close)
	return server
}

func TestRunner_Success(t *testing.T) {
	server := newFixtureServer(t)

	runner, err := NewRunner(&Config{Requests: 20, Concurrency: 4}, WithHTTPClient(http.NewClient()))
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), server.URL+"/ok", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(20), result.Summary.TotalRequests)
	assert.Equal(t, int64(20), result.Summary.SuccessCount)
	assert.Zero(t, result.Summary.ErrorCount)
	assert.Equal(t, map[int]int64{200: 20}, result.Summary.Statuses)
	assert.True(t, result.Passed)
}

func TestRunner_StatusErrors(t *testing.T) {
	server := newFixtureServer(t)

	runner, err := NewRunner(&Config{Requests: 5, Concurrency: 5})
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), server.URL+"/", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.Summary.ErrorCount)
	assert.Equal(t, map[string]int64{"status": 5}, result.Summary.ErrorKinds)
	assert.Equal(t, map[int]int64{404: 5}, result.Summary.Statuses)
}

func TestRunner_ArgumentError(t *testing.T) {
	runner, err := NewRunner(nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), "ftp://example.com", nil)
	assert.ErrorIs(t, err, http.ErrInvalidArgument)
	assert.Nil(t, result)
}

func TestRunner_InvalidConfig(t *testing.T) {
	_, err := NewRunner(&Config{Requests: 0, Concurrency: 1})
	assert.Error(t, err)
}

func TestRunner_Thresholds(t *testing.T) {
	server := newFixtureServer(t)

	runner, err := NewRunner(&Config{
		Requests:    4,
		Concurrency: 2,
		Thresholds:  Thresholds{ErrorRate: 0.01},
	})
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), server.URL+"/", nil)
	require.NoError(t, err)
	require.Len(t, result.Thresholds, 1)
	assert.False(t, result.Passed)
}

func TestRunner_Rate(t *testing.T) {
	server := newFixtureServer(t)

	runner, err := NewRunner(&Config{Requests: 5, Concurrency: 5, Rate: 50})
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.Run(context.Background(), server.URL+"/ok", nil)
	require.NoError(t, err)

	// 5 calls at 50/s with burst 1 take at least 4 intervals of 20ms
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Equal(t, int64(5), result.Summary.TotalRequests)
}

func TestRunner_Duration(t *testing.T) {
	server := newFixtureServer(t)

	runner, err := NewRunner(&Config{Requests: 100, Concurrency: 2, Duration: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.Run(context.Background(), server.URL+"/slow", nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(2), result.Summary.TotalRequests)
	assert.Equal(t, map[string]int64{"canceled": 2}, result.Summary.ErrorKinds)
}

func TestReporter_Summary(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	summary := &Summary{
		Duration:      2 * time.Second,
		TotalRequests: 1500,
		SuccessCount:  1490,
		ErrorCount:    10,
		RPS:           750,
		SuccessRate:   1490.0 / 1500,
		ErrorRate:     10.0 / 1500,
		P95:           12 * time.Millisecond,
		ErrorKinds:    map[string]int64{"transport": 4, "status": 6},
		Statuses:      map[int]int64{200: 1490, 503: 6},
	}
	reporter.Summary(summary, []ThresholdResult{{Name: "p95", Passed: true, Expected: "< 20ms", Actual: "12ms"}})

	out := buf.String()
	assert.Contains(t, out, "BENCHMARK SUMMARY")
	assert.Contains(t, out, "1,500 requests (750.0 req/s)")
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "503: 6")
	assert.Contains(t, out, "All thresholds passed!")
}

func TestReporter_JSONSummary(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(WithWriter(&buf), WithNoColor(true))

	summary := &Summary{
		TotalRequests: 3,
		SuccessCount:  2,
		ErrorCount:    1,
		P50:           5 * time.Millisecond,
		ErrorKinds:    map[string]int64{"decode": 1},
		Statuses:      map[int]int64{200: 3},
	}
	require.NoError(t, reporter.JSONSummary(summary, nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(3), out["requests"].(map[string]any)["total"])
	assert.Equal(t, float64(5), out["latency"].(map[string]any)["p50"])
	assert.Equal(t, map[string]any{"decode": float64(1)}, out["errors"])
	assert.Equal(t, map[string]any{"200": float64(3)}, out["statuses"])
	assert.NotContains(t, out, "thresholds")
}

func TestReporter_Compare(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewReporter(WithWriter(&buf), WithNoColor(true))

	prev := &Summary{P50: 10 * time.Millisecond, P95: 20 * time.Millisecond, P99: 40 * time.Millisecond, RPS: 100}
	cur := &Summary{P50: 10 * time.Millisecond, P95: 15 * time.Millisecond, P99: 50 * time.Millisecond, RPS: 120}
	reporter.Compare("run #3", prev, cur)

	out := buf.String()
	assert.Contains(t, out, "COMPARED TO run #3")
	assert.Contains(t, out, "p95: 20 -> 15 (25.0% faster)")
	assert.Contains(t, out, "p99: 40 -> 50 (25.0% slower)")
	assert.Contains(t, out, "rps: 100.0 -> 120.0")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
