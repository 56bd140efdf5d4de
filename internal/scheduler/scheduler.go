// Package scheduler runs periodic retention sweeps for linarr. It
// prunes old response logs and expired trigger-count buckets on a
// cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/linarr/linarr/internal/repository"
)

// Config holds retention sweep configuration.
type Config struct {
	// Cron is a 5-field cron expression for the sweep schedule.
	Cron string

	// ResponseLogDays is how many days of response logs to keep.
	ResponseLogDays int

	// CheckInterval is how often the loop checks whether a sweep is due.
	// Default: 1 minute.
	CheckInterval time.Duration
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{
		Cron:            "30 3 * * *",
		ResponseLogDays: 90,
		CheckInterval:   time.Minute,
	}
}

// Scheduler runs retention sweeps on a cron schedule.
type Scheduler struct {
	mu sync.Mutex

	logs     repository.ResponseLogRepository
	counters repository.TriggerCounterRepository

	logger *slog.Logger
	parser cron.Parser
	config Config

	// nextRun is the next scheduled sweep time, advanced after each run.
	nextRun time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new retention scheduler.
func New(logs repository.ResponseLogRepository, counters repository.TriggerCounterRepository, config Config) (*Scheduler, error) {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(config.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", config.Cron, err)
	}

	return &Scheduler{
		logs:     logs,
		counters: counters,
		logger:   slog.Default(),
		parser:   parser,
		config:   config,
	}, nil
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Start begins the scheduler's background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	schedule, err := s.parser.Parse(s.config.Cron)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.config.Cron, err)
	}
	s.nextRun = schedule.Next(time.Now())

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(schedule)

	s.logger.Info("retention scheduler started",
		slog.String("cron", s.config.Cron),
		slog.Int("response_log_days", s.config.ResponseLogDays),
		slog.Time("next_run", s.nextRun))

	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("retention scheduler stopped")
}

func (s *Scheduler) loop(schedule cron.Schedule) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if now.Before(s.nextRun) {
				continue
			}
			s.Sweep(s.ctx)
			s.nextRun = schedule.Next(now)
		}
	}
}

// Sweep prunes old response logs and expired trigger-count buckets.
// Failures are logged, not returned; the next scheduled run retries.
func (s *Scheduler) Sweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -s.config.ResponseLogDays)

	logsPruned, err := s.logs.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune response logs", slog.Any("error", err))
	}

	countersPruned, err := s.counters.PruneExpired(ctx, start)
	if err != nil {
		s.logger.Error("failed to prune trigger counters", slog.Any("error", err))
	}

	s.logger.Info("retention sweep completed",
		slog.Int64("response_logs_pruned", logsPruned),
		slog.Int64("trigger_counters_pruned", countersPruned),
		slog.Time("log_cutoff", cutoff),
		slog.Duration("elapsed", time.Since(start)))
}
