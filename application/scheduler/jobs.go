package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/agents"
	"dreamcatcher/application/ports"
	"dreamcatcher/application/services"
	domainservices "dreamcatcher/domain/services"
	"dreamcatcher/infrastructure/config"
)

// Job names.
const (
	JobStaleReview       = "stale_review"
	JobPriorityReview    = "priority_review"
	JobPatternReview     = "pattern_review"
	JobEmbeddingBackfill = "embedding_backfill"
	JobNotificationSweep = "notification_sweep"
	JobLogCleanup        = "log_cleanup"
)

const staleScanFactor = 20

// AgentDispatcher runs a task on an agent synchronously.
type AgentDispatcher interface {
	Dispatch(ctx context.Context, agentID string, task agents.Task) (map[string]interface{}, error)
}

// Backfiller embeds ideas that have no vector.
type Backfiller interface {
	Backfill(ctx context.Context, batch int) (services.BackfillResult, error)
}

// Sweeper drops expired notifications.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Deps are the collaborators of the default jobs. Nil fields disable the
// jobs that need them.
type Deps struct {
	Agents        AgentDispatcher
	Ideas         ports.IdeaRepository
	Logs          ports.AgentLogRepository
	Embeddings    Backfiller
	Notifications Sweeper

	// Tuning returns the current review tunables. Nil means the defaults.
	Tuning func() config.ReviewTuning
	Now    func() time.Time
	Logger *zap.Logger
}

// DefaultJobs builds the standard job set from cfg.
func DefaultJobs(cfg config.SchedulerConfig, sweepInterval time.Duration, deps Deps) []Job {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tuning := deps.Tuning
	if tuning == nil {
		defaults := config.DefaultDynamicConfig().Review
		tuning = func() config.ReviewTuning { return defaults }
	}

	var jobs []Job
	if deps.Agents != nil && deps.Ideas != nil {
		jobs = append(jobs, Job{
			Name:     JobStaleReview,
			Interval: cfg.StaleReview,
			Run:      staleReview(deps.Agents, deps.Ideas, tuning, now, logger),
		})
	}
	if deps.Agents != nil {
		jobs = append(jobs,
			Job{
				Name:     JobPriorityReview,
				Interval: cfg.PriorityReview,
				Run:      review(deps.Agents, "priority", domainservices.StrategyPriorityQueue),
			},
			Job{
				Name:     JobPatternReview,
				Interval: cfg.PatternReview,
				Run:      review(deps.Agents, "weekly", domainservices.StrategyPatternBased),
			},
		)
	}
	if deps.Embeddings != nil {
		batch := cfg.EmbeddingBatchSize
		jobs = append(jobs, Job{
			Name:     JobEmbeddingBackfill,
			Interval: cfg.EmbeddingBackfill,
			Run: func(ctx context.Context) error {
				_, err := deps.Embeddings.Backfill(ctx, batch)
				return err
			},
		})
	}
	if deps.Notifications != nil {
		jobs = append(jobs, Job{
			Name:     JobNotificationSweep,
			Interval: sweepInterval,
			Run: func(ctx context.Context) error {
				deps.Notifications.Sweep(ctx)
				return nil
			},
		})
	}
	if deps.Logs != nil && cfg.LogRetention > 0 {
		retention := cfg.LogRetention
		jobs = append(jobs, Job{
			Name:     JobLogCleanup,
			Interval: cfg.LogCleanup,
			Run: func(ctx context.Context) error {
				n, err := deps.Logs.DeleteAgentLogsBefore(ctx, now().Add(-retention))
				if err != nil {
					return err
				}
				if n > 0 {
					logger.Info("Agent logs cleaned up", zap.Int64("deleted", n))
				}
				return nil
			},
		})
	}
	return jobs
}

func review(d AgentDispatcher, reviewType, strategy string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := d.Dispatch(ctx, agents.ReviewerID, agents.ReviewRequest("", reviewType, strategy))
		return err
	}
}

// staleReview asks the reviewer to resurface ideas for every user that has
// important ideas nobody has touched recently. At most StaleBatch users are
// reviewed per run.
func staleReview(d AgentDispatcher, ideas ports.IdeaRepository, tuning func() config.ReviewTuning, now func() time.Time, logger *zap.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		t := tuning()
		age := time.Duration(t.StaleAfterDays) * 24 * time.Hour
		stale, err := ideas.FindStale(ctx, now().Add(-age), t.StaleMinUrgency, t.StaleBatch*staleScanFactor)
		if err != nil {
			return err
		}

		seen := make(map[string]bool)
		var errs []error
		for _, idea := range stale {
			if seen[idea.UserID] {
				continue
			}
			if len(seen) >= t.StaleBatch {
				break
			}
			seen[idea.UserID] = true
			task := agents.ReviewRequest(idea.UserID, "weekly", domainservices.StrategyTimeBased)
			if _, err := d.Dispatch(ctx, agents.ReviewerID, task); err != nil {
				errs = append(errs, err)
			}
		}
		if len(seen) > 0 {
			logger.Info("Stale ideas reviewed", zap.Int("ideas", len(stale)), zap.Int("users", len(seen)))
		}
		return errors.Join(errs...)
	}
}
