// Package scheduler re-runs ingestion on a cron schedule so that new export
// files dropped into the input directory are picked up.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron spec. A run that is still going when the
// next tick fires is not overlapped; the tick is skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler that runs job on spec. spec accepts the standard
// five-field format and descriptors such as "@hourly" or "@every 10m".
// Every run gets a context derived from ctx, so cancelling ctx interrupts
// the run in progress, including the initial one started by Start.
func New(ctx context.Context, spec string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{job: job, logger: logger}
	s.ctx, s.cancel = context.WithCancel(ctx)

	cl := cronLogger{logger}
	s.cron = cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		s.cancel()
		return nil, fmt.Errorf("could not set up cron job %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the schedule. With runNow the job also runs once immediately;
// that run completes before Start returns.
func (s *Scheduler) Start(runNow bool) {
	if runNow {
		s.logger.Info("Performing initial run on startup")
		s.run()
	} else {
		s.logger.Info("Skipping initial run on startup")
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Time("next_run", s.Next()))
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Next reports when the job fires next, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.job(s.ctx); err != nil {
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
