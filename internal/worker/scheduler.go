package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/valueminer/valueminer/internal/service"
)

// ReportRunner sends every report that is due at now.
type ReportRunner interface {
	RunDue(ctx context.Context, now time.Time) (*service.RunResult, error)
}

// Scheduler periodically triggers the scheduled report run.
type Scheduler struct {
	interval time.Duration
	runner   ReportRunner
	logger   *slog.Logger
	now      func() time.Time

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a report scheduler ticking every interval.
func NewScheduler(interval time.Duration, runner ReportRunner, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		interval: interval,
		runner:   runner,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the scheduler loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting report scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.logger.Info("stopping report scheduler")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	res, err := s.runner.RunDue(s.ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled report run failed", "error", err)
		return
	}
	if res.Due > 0 {
		s.logger.Info("scheduled report run", "sent", res.Sent, "failed", res.Failed)
	}
}
