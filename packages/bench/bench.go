package bench

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitfetch/packages/http"
)

// Runner issues the same call repeatedly and collects metrics
type Runner struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
	sem     chan struct{}
}

// RunnerOption configures the runner
type RunnerOption func(*Runner)

// WithHTTPClient sets the client used for every call
func WithHTTPClient(client *http.Client) RunnerOption {
	return func(r *Runner) {
		r.client = client
	}
}

// Result is the outcome of a run
type Result struct {
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
}

// NewRunner creates a runner for config. A nil config uses DefaultConfig.
func NewRunner(config *Config, opts ...RunnerOption) (*Runner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		config: config,
		client: http.DefaultClient,
		sem:    make(chan struct{}, config.Concurrency),
	}
	if config.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Run issues config.Requests calls of address. Argument errors are
// reported before any call is made; every other failure is counted in the
// summary by kind. Run stops early when ctx is done or Duration elapses.
func (r *Runner) Run(ctx context.Context, address string, opts *http.Options) (*Result, error) {
	if _, err := r.client.Normalize(address, opts); err != nil {
		return nil, err
	}

	if r.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Duration)
		defer cancel()
	}

	metrics := NewMetrics()
	metrics.Start()

	var wg sync.WaitGroup
	for i := 0; i < r.config.Requests; i++ {
		if !r.acquire(ctx) {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.release()
			r.call(ctx, metrics, address, opts)
		}()
	}
	wg.Wait()
	metrics.Stop()

	summary := metrics.GetSummary()
	var thresholdResults []ThresholdResult
	if r.config.Thresholds.HasThresholds() {
		thresholdResults = EvaluateThresholds(summary, r.config.Thresholds)
	}

	passed := true
	for _, tr := range thresholdResults {
		if !tr.Passed {
			passed = false
			break
		}
	}

	return &Result{
		Summary:    summary,
		Thresholds: thresholdResults,
		Passed:     passed,
	}, nil
}

// acquire waits for the rate limiter and a concurrency slot
func (r *Runner) acquire(ctx context.Context) bool {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return false
		}
	}
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	if ctx.Err() != nil {
		r.release()
		return false
	}
	return true
}

func (r *Runner) release() {
	<-r.sem
}

func (r *Runner) call(ctx context.Context, metrics *Metrics, address string, opts *http.Options) {
	start := time.Now()
	res, err := r.client.Do(ctx, address, opts)
	elapsed := time.Since(start)

	status := 0
	if res != nil && res.Response != nil {
		status = res.Response.StatusCode
	}
	metrics.Record(elapsed, status, err)
}
