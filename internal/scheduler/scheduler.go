// Package scheduler fires the global sweep on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qarzdaftar/backend/internal/services"
)

type Sweeper interface {
	Run(ctx context.Context) (services.SweepReport, error)
}

// Scheduler does not guard against overlapping sweeps beyond skipping a tick
// while the previous one still runs; the ledger makes overlap harmless anyway.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(spec string, loc *time.Location, sw Sweeper, log *slog.Logger) (*Scheduler, error) {
	log = log.With("component", "scheduler")
	cl := cronLogger{log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, sweeper: sw, log: log, ctx: ctx, cancel: cancel}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "next", s.Next())
}

// Stop cancels a running sweep and waits for it, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs one sweep on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) (services.SweepReport, error) {
	return s.sweeper.Run(ctx)
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	if _, err := s.sweeper.Run(s.ctx); err != nil {
		s.log.Error("scheduled sweep failed", "err", err)
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.log.Debug(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, append([]interface{}{"err", err}, kv...)...)
}
