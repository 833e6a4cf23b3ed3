package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically completes confirmed bookings whose end time has passed.
type Sweeper struct {
	cron    *cron.Cron
	service Service
	log     *slog.Logger
	timeout time.Duration
}

// NewSweeper schedules the completion pass on a cron spec such as "@every 5m".
func NewSweeper(service Service, schedule string, log *slog.Logger) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Sweeper{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		service: service,
		log:     log,
		timeout: time.Minute,
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.log.Info("booking sweeper started")
	s.cron.Start()
}

// Stop waits for a running pass to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("booking sweeper stopped")
}

// RunOnce performs a single completion pass.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.service.CompleteElapsed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.InfoContext(ctx, "completed elapsed bookings", "count", n)
	}
	return n, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("booking sweep failed", "error", err)
	}
}
