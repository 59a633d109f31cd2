package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/valueminer/valueminer/internal/domain"
	"github.com/valueminer/valueminer/internal/repository"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// abortGrace is how long Stop waits, after the timeout cancels in-flight
// requests, for them to record their outcome.
var abortGrace = 2 * time.Second

// IntakeProcessor mines one claimed intake request and records the outcome
// on it.
type IntakeProcessor interface {
	Process(ctx context.Context, req *domain.IntakeRequest) error
}

// Pool manages a pool of workers draining the intake queue.
type Pool struct {
	workers      int
	pollInterval time.Duration
	intakeRepo   repository.IntakeRepository
	processor    IntakeProcessor
	logger       *slog.Logger

	requeueOnStart bool

	wg     sync.WaitGroup
	ctx    context.Context // claiming and polling
	cancel context.CancelFunc

	procCtx    context.Context // in-flight requests
	procCancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration

	// RequeueOnStart moves requests left in processing by a previous run
	// back to the queue before the workers start.
	RequeueOnStart bool
}

// NewPool creates a new worker pool.
func NewPool(
	cfg Config,
	intakeRepo repository.IntakeRepository,
	processor IntakeProcessor,
	logger *slog.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	procCtx, procCancel := context.WithCancel(context.Background())

	return &Pool{
		workers:        cfg.Workers,
		pollInterval:   cfg.PollInterval,
		intakeRepo:     intakeRepo,
		processor:      processor,
		logger:         logger,
		requeueOnStart: cfg.RequeueOnStart,
		ctx:            ctx,
		cancel:         cancel,
		procCtx:        procCtx,
		procCancel:     procCancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	if p.requeueOnStart {
		n, err := p.intakeRepo.RequeueProcessing(p.ctx)
		if err != nil {
			p.logger.Error("failed to requeue stale intake requests", "error", err)
		} else if n > 0 {
			p.logger.Warn("requeued stale intake requests", "count", n)
		}
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops claiming new requests and waits for in-flight ones to finish.
// When timeout expires the in-flight requests are cancelled and given
// abortGrace to record their outcome.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()
	defer p.procCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
	}

	p.logger.Warn("cancelling in-flight intake requests")
	p.procCancel()
	select {
	case <-done:
	case <-time.After(abortGrace):
	}
	return ErrShutdownTimeout
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for p.ctx.Err() == nil && p.processNext(logger) {
			}
		}
	}
}

// processNext claims and processes one request. It reports whether a
// request was claimed.
func (p *Pool) processNext(logger *slog.Logger) bool {
	req, err := p.intakeRepo.ClaimNext(p.ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoIntakeRequests) && !errors.Is(err, context.Canceled) {
			logger.Error("failed to claim intake request", "error", err)
		}
		return false
	}

	logger = logger.With("intake_id", req.ID, "video_id", req.VideoID)
	logger.Info("processing intake request")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("intake processing panicked", "panic", r)
			req.MarkFailed("internal error")
			if err := p.intakeRepo.Update(context.WithoutCancel(p.procCtx), req); err != nil {
				logger.Error("failed to update intake after panic", "error", err)
			}
		}
	}()

	if err := p.processor.Process(p.procCtx, req); err != nil {
		logger.Error("intake request failed", "error", err)
		return true
	}

	logger.Info("intake request completed", "clip_id", req.ClipID)
	return true
}
