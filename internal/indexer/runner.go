// Package indexer runs multiple indexing jobs concurrently over a
// bounded worker pool. Phases stay strictly sequential inside a job;
// only whole jobs run in parallel.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/ixberis/doxai-indexer/internal/pipeline"
)

// Result pairs one submitted request with its orchestration outcome.
type Result struct {
	Request pipeline.JobRequest
	Summary *pipeline.Summary
	Err     error
}

// Runner fans job requests out to a fixed-size worker pool. There is no
// per-file lock; two concurrent jobs over the same file race on chunk
// replacement.
type Runner struct {
	orch   *pipeline.Orchestrator
	pool   *ants.Pool
	logger *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
}

// Option configures a Runner.
type Option func(*Runner) error

// WithPoolSize sets the worker pool size. Default is
// runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a runner over the given orchestrator.
func NewRunner(orch *pipeline.Orchestrator, opts ...Option) (*Runner, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		orch:   orch,
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(r); optErr != nil {
			r.Release()
			return nil, optErr
		}
	}
	return r, nil
}

// Submit enqueues one job. The call blocks only while the pool is
// saturated; the job itself runs asynchronously.
func (r *Runner) Submit(ctx context.Context, req pipeline.JobRequest) error {
	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()

		summary, runErr := r.orch.Run(ctx, req)
		if runErr != nil {
			r.logger.Error("job rejected", "file_id", req.FileID, "error", runErr)
		}

		r.mu.Lock()
		r.results = append(r.results, Result{Request: req, Summary: summary, Err: runErr})
		r.mu.Unlock()
	})
	if err != nil {
		r.wg.Done()
		return fmt.Errorf("submitting job for file %s: %w", req.FileID, err)
	}
	return nil
}

// Wait blocks until every submitted job finished and returns their
// results in completion order.
func (r *Runner) Wait() []Result {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Release tears down the worker pool. The runner should not be used
// after calling Release.
func (r *Runner) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}
