package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"perftrack/internal/platform/config"
	"perftrack/internal/requestctx"
)

// Queue runs side-effect jobs on a fixed pool of workers. It implements
// workflow.Runner. Enqueue never blocks: when the buffer is full the job is
// dropped and logged.
type Queue struct {
	queue   chan job
	workers int
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

type job struct {
	Type string
	Ctx  context.Context
	Run  func(context.Context) error
}

func New(cfg config.Config) *Queue {
	workers := cfg.DispatchWorkers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.DispatchQueueSize
	if size <= 0 {
		size = 128
	}
	return &Queue{
		queue:   make(chan job, size),
		workers: workers,
		timeout: cfg.DispatchTimeout,
	}
}

func (q *Queue) Start() {
	q.once.Do(func() {
		for range q.workers {
			q.wg.Add(1)
			go q.worker()
		}
	})
}

func (q *Queue) Enqueue(ctx context.Context, jobType string, run func(context.Context) error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		slog.Warn("job queue closed", "jobType", jobType, "requestId", requestctx.GetRequestID(ctx))
		return
	}
	select {
	case q.queue <- job{Type: jobType, Ctx: context.WithoutCancel(ctx), Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "requestId", requestctx.GetRequestID(ctx))
	}
}

// Close stops accepting jobs and waits for queued ones to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.queue {
		q.runJob(j)
	}
}

func (q *Queue) runJob(j job) {
	ctx := j.Ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "jobType", j.Type, "panic", r, "requestId", requestctx.GetRequestID(ctx))
		}
	}()
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		slog.Warn("job run failed", "jobType", j.Type, "err", err, "requestId", requestctx.GetRequestID(ctx))
		return
	}
	slog.Debug("job run", "jobType", j.Type, "durationMs", time.Since(start).Milliseconds())
}
