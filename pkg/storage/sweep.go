package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs a sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweepable is anything that can drop its expired entries.
type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper removes expired entries on a cron schedule. Useful for drivers
// without native expiry (memory, postgres, pebble).
type Sweeper struct {
	target  Sweepable
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepLogger sets the logger for sweep results.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSweepTimeout bounds a single sweep run. Default: one minute.
func WithSweepTimeout(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSweeper schedules target.Sweep using a standard five-field cron
// expression or a descriptor such as "@every 1m" or "@hourly".
// An empty schedule selects DefaultSweepSchedule.
func NewSweeper(target Sweepable, schedule string, opts ...SweeperOption) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &Sweeper{
		target:  target,
		logger:  slog.New(slog.DiscardHandler),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}

	s.cron = cron.New(cron.WithParser(parser))
	s.cron.Schedule(sched, cron.FuncJob(s.run))
	return s, nil
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx
// to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.target.Sweep(ctx)
}

func (s *Sweeper) run() {
	start := time.Now()
	n, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Error("storage sweep failed", slog.Any("error", err))
		return
	}
	s.logger.Debug("storage sweep completed",
		slog.Int("removed", n),
		slog.Duration("took", time.Since(start)),
	)
}
