package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/agrorain/internal/rainfall"
)

// Prober is the part of the service the scheduler drives.
type Prober interface {
	Backend() rainfall.BackendKind
	Probe(ctx context.Context) error
}

// Scheduler periodically checks that the remote backend still answers.
type Scheduler struct {
	scheduler *gocron.Scheduler
	prober    Prober
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(prober Prober, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		prober:    prober,
		interval:  interval,
		timeout:   10 * time.Second,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the probe job and starts the underlying scheduler. The
// local backend has nothing to probe.
func (s *Scheduler) Start() error {
	if s.prober.Backend() != rainfall.BackendRemote {
		s.logger.Info("local backend active; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).WaitForSchedule().Do(s.runProbe)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("connectivity probe scheduled", "interval", interval)
	return nil
}

func (s *Scheduler) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.prober.Probe(ctx); err != nil {
		s.logger.Warn("remote backend probe failed", "error", err)
		return
	}
	s.logger.Debug("remote backend probe ok")
}

// Running reports whether jobs are scheduled.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
