package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_SQLiteWithColonPrefix(t *testing.T) {
	client, err := NewClient("sqlite:" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer client.Close()

	runs, err := client.Runs(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewClient_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	client, err := NewClient(path)
	require.NoError(t, err)
	_, err = client.SaveRun(context.Background(), &Run{Address: "http://a/", StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	client, err = NewClient(path)
	require.NoError(t, err)
	defer client.Close()

	runs, err := client.Runs(context.Background(), "http://a/", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	started := time.UnixMicro(time.Now().UnixMicro())
	run := &Run{
		Address:   "http://localhost:3000/ok",
		StartedAt: started,
		Duration:  2 * time.Second,
		Requests:  100,
		Success:   98,
		Errors:    2,
		RPS:       49.5,
		P50:       3 * time.Millisecond,
		P95:       12 * time.Millisecond,
		P99:       20 * time.Millisecond,
		Max:       31 * time.Millisecond,
		Mean:      4 * time.Millisecond,
		Passed:    true,
	}

	id, err := client.SaveRun(ctx, run)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)

	runs, err := client.Runs(ctx, run.Address, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.True(t, started.Equal(got.StartedAt))
	got.StartedAt = run.StartedAt
	assert.Equal(t, *run, got)
}

func TestRuns_FilterAndOrder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	base := time.Now()

	for i, address := range []string{"http://a/", "http://b/", "http://a/", "http://a/"} {
		_, err := client.SaveRun(ctx, &Run{
			Address:   address,
			StartedAt: base.Add(time.Duration(i) * time.Second),
			Requests:  int64(i),
		})
		require.NoError(t, err)
	}

	runs, err := client.Runs(ctx, "http://a/", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(3), runs[0].Requests)
	assert.Equal(t, int64(2), runs[1].Requests)

	all, err := client.Runs(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPrevious(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := &Run{Address: "http://a/", StartedAt: time.Now(), P95: 10 * time.Millisecond}
	_, err := client.SaveRun(ctx, first)
	require.NoError(t, err)

	prev, err := client.Previous(ctx, "http://a/", first.ID)
	require.NoError(t, err)
	assert.Nil(t, prev)

	second := &Run{Address: "http://a/", StartedAt: time.Now().Add(time.Second), P95: 8 * time.Millisecond}
	_, err = client.SaveRun(ctx, second)
	require.NoError(t, err)

	prev, err = client.Previous(ctx, "http://a/", second.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, first.ID, prev.ID)
	assert.Equal(t, 10*time.Millisecond, prev.P95)
}

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"sqlite://./runs.db", "./runs.db", false},
		{"sqlite:runs.db", "runs.db", false},
		{"  runs.db ", "runs.db", false},
		{"postgres://user@host/db", "", true},
		{"sqlite://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			dsn, err := parseConnectionString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dsn)
		})
	}
}
