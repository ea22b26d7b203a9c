package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"securequiz/internal/logging"
	"securequiz/internal/utils/id"
)

// Config holds scheduler configuration.
type Config struct {
	Enabled           bool
	JobTimeout        time.Duration
	ConcurrencyPolicy string // skip (default) or delay
}

// Job is a named maintenance task run on a cron schedule.
type Job struct {
	Name     string
	Schedule string // five-field cron expression or descriptor such as "@every 1h"
	Run      func(ctx context.Context) error
}

// Scheduler runs maintenance jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	config   Config
	logger   logging.Logger
	mu       sync.Mutex
	jobs     map[string]Job
	entryIDs map[string]cron.EntryID
	baseCtx  context.Context
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a Scheduler. Jobs are registered with Register before Start.
func New(cfg Config, logger logging.Logger) *Scheduler {
	logger = logging.OrNop(logger)
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cron:     newCron(cfg, logger),
		config:   cfg,
		logger:   logger,
		jobs:     make(map[string]Job),
		entryIDs: make(map[string]cron.EntryID),
		baseCtx:  context.Background(),
		stopped:  make(chan struct{}),
	}
}

func newCron(cfg Config, logger logging.Logger) *cron.Cron {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	var wrapper cron.JobWrapper
	switch policy := strings.ToLower(strings.TrimSpace(cfg.ConcurrencyPolicy)); policy {
	case "delay":
		wrapper = cron.DelayIfStillRunning(cron.DefaultLogger)
	case "skip", "":
		wrapper = cron.SkipIfStillRunning(cron.DefaultLogger)
	default:
		logger.Warn("Scheduler: unknown concurrency policy %q, defaulting to skip", policy)
		wrapper = cron.SkipIfStillRunning(cron.DefaultLogger)
	}
	return cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger), wrapper))
}

// Register adds job. Names must be unique and schedules must parse.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job has no name")
	}
	if job.Schedule == "" {
		return fmt.Errorf("job %q has no schedule", job.Name)
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no run function", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entryIDs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	j := job
	entryID, err := s.cron.AddFunc(j.Schedule, func() {
		s.execute(j)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression for %q: %w", job.Name, err)
	}
	s.jobs[job.Name] = job
	s.entryIDs[job.Name] = entryID
	s.logger.Info("Scheduler: registered job %q (schedule=%s)", job.Name, job.Schedule)
	return nil
}

// Start begins running registered jobs and stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled by config")
		s.stopOnce.Do(func() { close(s.stopped) })
		return nil
	}
	s.mu.Lock()
	s.baseCtx = ctx
	count := len(s.entryIDs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started with %d jobs", count)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for running jobs and stops the scheduler. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Scheduler stopping...")
		<-s.cron.Stop().Done()
		close(s.stopped)
		s.logger.Info("Scheduler stopped")
	})
}

// Done is closed once the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// RunNow executes the named job synchronously, outside the cron schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.run(ctx, job)
}

// JobNames returns the registered job names in sorted order.
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entryIDs))
	for name := range s.entryIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if err := s.run(ctx, job); err != nil {
		s.logger.Warn("Scheduler: job %q failed: %v", job.Name, err)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	ctx, _ = id.EnsureLogID(ctx)
	started := time.Now()
	err := job.Run(ctx)
	logging.FromContext(ctx, s.logger).Debug("Scheduler: job %q finished in %s", job.Name, time.Since(started))
	return err
}
