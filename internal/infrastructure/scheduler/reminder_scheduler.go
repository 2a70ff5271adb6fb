// Package scheduler runs the recurring background jobs of the service.
package scheduler

import (
	"context"
	"sync"
	"time"

	appdocument "github.com/propsign/backend/internal/application/document"
	"go.uber.org/zap"
)

// ReminderSweeper runs one reminder sweep over all tenants
type ReminderSweeper interface {
	SweepAll(ctx context.Context) (appdocument.SweepResult, error)
}

// ReminderScheduler periodically sweeps open signature requests and sends
// follow-up reminders to recipients who have not signed yet.
type ReminderScheduler struct {
	service   ReminderSweeper
	logger    *zap.Logger
	config    ReminderSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// ReminderSchedulerConfig holds configuration for the reminder scheduler
type ReminderSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// SweepInterval is how often the full sweep runs
	SweepInterval time.Duration

	// SweepTimeout is the maximum time for one sweep run
	SweepTimeout time.Duration
}

// DefaultReminderSchedulerConfig returns default configuration
func DefaultReminderSchedulerConfig() ReminderSchedulerConfig {
	return ReminderSchedulerConfig{
		Enabled:       true,
		SweepInterval: 6 * time.Hour,
		SweepTimeout:  10 * time.Minute,
	}
}

// NewReminderScheduler creates a new reminder scheduler
func NewReminderScheduler(
	service ReminderSweeper,
	logger *zap.Logger,
	config ReminderSchedulerConfig,
) *ReminderScheduler {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 6 * time.Hour
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 10 * time.Minute
	}
	return &ReminderScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the reminder sweep loop
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reminder scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runSweepLoop(ctx)

	s.logger.Info("Reminder scheduler started",
		zap.Duration("sweep_interval", s.config.SweepInterval))
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep
func (s *ReminderScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reminder scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reminder scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the sweep loop is active
func (s *ReminderScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *ReminderScheduler) runSweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Reminder sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

func (s *ReminderScheduler) executeSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.service.SweepAll(sweepCtx)
	if err != nil {
		s.logger.Error("Reminder sweep failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}

	s.logger.Info("Reminder sweep completed",
		zap.Int("examined", result.Examined),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(start)))
}
