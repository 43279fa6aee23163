package workflow

import (
	"context"
	"log/slog"
	"time"

	"perftrack/internal/requestctx"
)

const (
	JobNotify = "notify"
	JobAudit  = "audit"
)

// Runner executes side-effect jobs off the caller's path.
type Runner interface {
	Enqueue(ctx context.Context, jobType string, run func(context.Context) error)
}

// Dispatcher hands notifications and audit records to a Runner after a state
// change has been persisted. Failures are logged by the runner and never
// reach the caller.
type Dispatcher struct {
	notifier Notifier
	auditor  AuditRecorder
	runner   Runner
	now      func() time.Time
}

func NewDispatcher(notifier Notifier, auditor AuditRecorder, runner Runner) *Dispatcher {
	if runner == nil {
		runner = GoRunner{}
	}
	return &Dispatcher{notifier: notifier, auditor: auditor, runner: runner, now: time.Now}
}

func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if d == nil || d.notifier == nil || n.RecipientID == 0 {
		return
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	d.runner.Enqueue(ctx, JobNotify, func(jobCtx context.Context) error {
		return d.notifier.Send(jobCtx, n)
	})
}

func (d *Dispatcher) Audit(ctx context.Context, rec AuditRecord) {
	if d == nil || d.auditor == nil {
		return
	}
	if rec.RequestID == "" {
		rec.RequestID = requestctx.GetRequestID(ctx)
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = d.now().UTC()
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeSuccess
	}
	d.runner.Enqueue(ctx, JobAudit, func(jobCtx context.Context) error {
		return d.auditor.Record(jobCtx, rec)
	})
}

// GoRunner starts one goroutine per job. Used when no queue is configured.
type GoRunner struct{}

func (GoRunner) Enqueue(ctx context.Context, jobType string, run func(context.Context) error) {
	jobCtx := context.WithoutCancel(ctx)
	go runLogged(jobCtx, jobType, run)
}

// InlineRunner runs jobs on the calling goroutine. Failures are still only logged.
type InlineRunner struct{}

func (InlineRunner) Enqueue(ctx context.Context, jobType string, run func(context.Context) error) {
	runLogged(context.WithoutCancel(ctx), jobType, run)
}

func runLogged(ctx context.Context, jobType string, run func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("side effect panicked", "jobType", jobType, "panic", r, "requestId", requestctx.GetRequestID(ctx))
		}
	}()
	if err := run(ctx); err != nil {
		slog.Warn("side effect failed", "jobType", jobType, "err", err, "requestId", requestctx.GetRequestID(ctx))
	}
}
