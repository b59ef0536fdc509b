package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a job on a standard five-field cron spec. Overlapping runs
// are skipped and panics are recovered.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
}

func NewScheduler(ctx context.Context, spec string, job func(context.Context) error) (*Scheduler, error) {
	logger := cronLogger{slog.Default()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled import failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, id: id}, nil
}

// Run starts the scheduler and blocks until ctx is done and any running job
// has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	slog.InfoContext(ctx, "Import scheduler started", "next_run", s.cron.Entry(s.id).Next)
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
