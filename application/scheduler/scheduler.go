// Package scheduler runs the periodic background jobs: reviews, embedding
// backfill, notification expiry and agent log cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/infrastructure/observability"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type registered struct {
	Job
	running atomic.Bool
	runs    atomic.Int64
	fails   atomic.Int64
}

// JobStatus reports a job's schedule and history.
type JobStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
	Runs     int64         `json:"runs"`
	Failures int64         `json:"failures"`
}

// Scheduler runs each job on its own ticker. A job never overlaps itself:
// a tick that arrives while the previous run is still going is skipped.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*registered
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	metrics *observability.Collector
	logger  *zap.Logger
}

// New creates an empty scheduler.
func New(metrics *observability.Collector, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{metrics: metrics, logger: logger}
}

// Add registers a job. Jobs with a non-positive interval are ignored so a
// zero config value disables them.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		s.logger.Info("Scheduled job disabled", zap.String("job", job.Name))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	for _, j := range s.jobs {
		if j.Name == job.Name {
			return fmt.Errorf("job %q already registered", job.Name)
		}
	}
	s.jobs = append(s.jobs, &registered{Job: job})
	return nil
}

// Start launches one goroutine per job. It returns an error when called twice.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler is already running")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels every job and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunNow runs the named job immediately. It reports false when the job is
// unknown or already running.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	var job *registered
	for _, j := range s.jobs {
		if j.Name == name {
			job = j
		}
	}
	s.mu.Unlock()
	if job == nil {
		return false, fmt.Errorf("unknown job %q", name)
	}
	return s.execute(ctx, job)
}

// Status lists the registered jobs.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobStatus{
			Name:     j.Name,
			Interval: j.Interval,
			Running:  j.running.Load(),
			Runs:     j.runs.Load(),
			Failures: j.fails.Load(),
		})
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, job *registered) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.execute(ctx, job); err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

// execute runs job unless it is already running. Panics are recovered and
// counted as failures.
func (s *Scheduler) execute(ctx context.Context, job *registered) (ran bool, err error) {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Debug("Skipping overlapping run", zap.String("job", job.Name))
		return false, nil
	}
	defer job.running.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
			s.logger.Error("Scheduled job panicked", zap.String("job", job.Name), zap.Any("panic", r), zap.Stack("stack"))
		}
		job.runs.Add(1)
		d := time.Since(start)
		s.metrics.RecordSchedulerRun(job.Name, err, d)
		if err != nil {
			job.fails.Add(1)
			s.logger.Warn("Scheduled job failed", zap.String("job", job.Name), zap.Duration("duration", d), zap.Error(err))
			return
		}
		s.logger.Debug("Scheduled job finished", zap.String("job", job.Name), zap.Duration("duration", d))
	}()

	return true, job.Run(ctx)
}
