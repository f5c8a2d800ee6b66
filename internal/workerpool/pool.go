package workerpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docsort/internal/logging"
	"docsort/internal/pipeline"
	"docsort/internal/registry"
)

const submitBuffer = 64

// Runner executes one job for a file.
type Runner interface {
	Process(ctx context.Context, path string) pipeline.Outcome
}

// Pool runs jobs on a fixed number of workers. Submissions never block the
// caller and are rejected once the pool is stopping.
type Pool struct {
	logger   *slog.Logger
	runner   Runner
	registry *registry.Registry
	size     int

	jobs       chan string
	workers    sync.WaitGroup
	submitters sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	ctx     context.Context
}

// New builds a pool of the given size. Sizes below one fall back to one.
func New(size int, runner Runner, reg *registry.Registry, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		logger:   logging.NewComponentLogger(logger, "workerpool"),
		runner:   runner,
		registry: reg,
		size:     size,
		jobs:     make(chan string, submitBuffer),
	}
}

// Start launches the workers. The context bounds every job the pool runs.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.ctx = ctx

	for i := 0; i < p.size; i++ {
		p.workers.Add(1)
		go p.work(i)
	}
	p.logger.Info("workers started", logging.Int("workers", p.size))
}

// Submit queues a job for path unless the ledger already records this file
// version or the pool is stopping. It never blocks: when the queue is full
// the handoff moves to a background goroutine. Returns true when the job
// was accepted.
func (p *Pool) Submit(path string) bool {
	if p.registry.IsProcessed(path) {
		p.logger.Debug("already processed, skipping", logging.String(logging.FieldFile, path))
		return false
	}

	p.mu.Lock()
	if p.closed || !p.started {
		p.mu.Unlock()
		p.logger.Debug("pool stopping, submission rejected", logging.String(logging.FieldFile, path))
		return false
	}
	// Registered under the lock so Stop cannot close the channel while a
	// handoff is pending.
	p.submitters.Add(1)
	p.mu.Unlock()

	select {
	case p.jobs <- path:
		p.submitters.Done()
	default:
		go func() {
			defer p.submitters.Done()
			p.jobs <- path
		}()
	}
	return true
}

// Stop rejects new submissions, waits for queued and in-flight jobs to
// finish, then flushes the ledger.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.submitters.Wait()
	close(p.jobs)
	p.workers.Wait()

	if err := p.registry.Flush(); err != nil {
		p.logger.Error("final ledger flush failed", logging.Error(err))
	}
	p.logger.Info("workers drained")
}

func (p *Pool) work(id int) {
	defer p.workers.Done()
	logger := p.logger.With(logging.Int("worker", id))
	for path := range p.jobs {
		p.run(logger, path)
	}
}

// run guards a single job. A panicking job is logged and absorbed so the
// worker keeps serving the queue.
func (p *Pool) run(logger *slog.Logger, path string) {
	defer func() {
		if r := recover(); r != nil {
			err := pipeline.Wrap(pipeline.ErrPanic, "run job", fmt.Sprint(r), nil)
			logger.Error("job panicked",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
			)
		}
	}()
	p.runner.Process(p.ctx, path)
}
