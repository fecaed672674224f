// Package db keeps a history of benchmark runs in SQLite so that a run can
// be compared with the ones before it.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS bench_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	address     TEXT    NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	requests    INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	errors      INTEGER NOT NULL,
	rps         REAL    NOT NULL,
	p50_us      INTEGER NOT NULL,
	p95_us      INTEGER NOT NULL,
	p99_us      INTEGER NOT NULL,
	max_us      INTEGER NOT NULL,
	mean_us     INTEGER NOT NULL,
	passed      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS bench_runs_address ON bench_runs (address, started_at);
`

// Run is one stored benchmark run
type Run struct {
	ID        int64
	Address   string
	StartedAt time.Time
	Duration  time.Duration
	Requests  int64
	Success   int64
	Errors    int64
	RPS       float64
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Max       time.Duration
	Mean      time.Duration
	Passed    bool
}

// Client represents a history database
type Client struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewClient opens the history database named by connectionString and
// creates its tables when missing
func NewClient(connectionString string) (*Client, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Client{
		db:           db,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// SaveRun stores run and returns its id
func (c *Client) SaveRun(ctx context.Context, run *Run) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO bench_runs (address, started_at, duration_us, requests, success, errors, rps,
			p50_us, p95_us, p99_us, max_us, mean_us, passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Address, run.StartedAt.UnixMicro(), run.Duration.Microseconds(),
		run.Requests, run.Success, run.Errors, run.RPS,
		run.P50.Microseconds(), run.P95.Microseconds(), run.P99.Microseconds(),
		run.Max.Microseconds(), run.Mean.Microseconds(), run.Passed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// Runs returns up to limit runs of address, newest first. An empty address
// lists runs of every address.
func (c *Client) Runs(ctx context.Context, address string, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, address, started_at, duration_us, requests, success, errors, rps,
		p50_us, p95_us, p99_us, max_us, mean_us, passed FROM bench_runs`
	var args []any
	if address != "" {
		query += ` WHERE address = ?`
		args = append(args, address)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                   Run
			startedAt, durationUs int64
			p50Us, p95Us, p99Us   int64
			maxUs, meanUs         int64
		)
		if err := rows.Scan(&run.ID, &run.Address, &startedAt, &durationUs,
			&run.Requests, &run.Success, &run.Errors, &run.RPS,
			&p50Us, &p95Us, &p99Us, &maxUs, &meanUs, &run.Passed); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt = time.UnixMicro(startedAt)
		run.Duration = time.Duration(durationUs) * time.Microsecond
		run.P50 = time.Duration(p50Us) * time.Microsecond
		run.P95 = time.Duration(p95Us) * time.Microsecond
		run.P99 = time.Duration(p99Us) * time.Microsecond
		run.Max = time.Duration(maxUs) * time.Microsecond
		run.Mean = time.Duration(meanUs) * time.Microsecond
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Previous returns the newest run of address stored before id, or nil
func (c *Client) Previous(ctx context.Context, address string, id int64) (*Run, error) {
	runs, err := c.Runs(ctx, address, 2)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID != id {
			return &runs[i], nil
		}
	}
	return nil, nil
}

// parseConnectionString turns a connection string into a SQLite DSN.
// Supported formats:
// - sqlite://path/to/db.sqlite
// - sqlite:./history.db
// - path/to/history.db
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported database scheme: %s", scheme)
	}

	if connStr == "" {
		return "", fmt.Errorf("database path is required")
	}
	return connStr, nil
}
