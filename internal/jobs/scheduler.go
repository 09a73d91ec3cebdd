// Package jobs runs periodic maintenance tasks on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler logging through logger.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Named("cron")}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
	}
}

// Add registers task under name. Each run gets its own timeout.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := task(ctx); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return err
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Sugar().Debugw(msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Sugar().Errorw(msg, append(kv, "error", err)...)
}
