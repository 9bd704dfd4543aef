// Package worker applies queued profile writes to the store.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/guessr/internal/adapters/mq/queue"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
)

const (
	defaultWriteTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Applier writes one partial profile update.
type Applier interface {
	UpdateProfile(ctx context.Context, u model.ProfileUpdate) error
}

// Source is where a worker reads jobs from.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker consumes jobs until its source closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the source is
	// drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker applies jobs one at a time, in source order.
type InMemoryWorker struct {
	source       Source
	applier      Applier
	name         string
	writeTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(source Source, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:       source,
		applier:      applier,
		name:         "worker",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.apply(ctx, j); err != nil {
				w.logger.Error(ctx, "profile sync failed",
					logger.UserID(j.Update.UserID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown implements Worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns how many jobs were applied successfully.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many jobs the store rejected.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) apply(ctx context.Context, j queue.Job) error {
	if j.Update.Empty() {
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	if err := w.applier.UpdateProfile(wctx, j.Update); err != nil {
		w.failed.Add(1)
		metrics.RecordProfileSyncError()
		metrics.RecordErrorByComponent("worker", "persistence")
		return fmt.Errorf("apply update for %s: %w", j.Update.UserID, err)
	}
	w.processed.Add(1)
	if !j.EnqueuedAt.IsZero() {
		metrics.RecordProfileSync(float64(time.Since(j.EnqueuedAt).Microseconds()) / 1000)
	}
	return nil
}

// Pool runs one worker per queue shard so that writes for a user are
// applied in the order they were requested.
type Pool struct {
	workers []*InMemoryWorker
	queue   *queue.Sharded
	logger  logger.Logger
}

// NewPool creates a worker for every shard of q.
func NewPool(q *queue.Sharded, applier Applier, log logger.Logger, opts ...Option) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, q.NumShards()),
		queue:   q,
		logger:  log.Named("sync-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithLogger(log), WithName("sync-worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q.Shard(i), applier, wopts...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Processed sums successful writes across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums rejected writes across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("sync pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
