package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/application/agents"
	"dreamcatcher/application/services"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	domainservices "dreamcatcher/domain/services"
	"dreamcatcher/infrastructure/config"
	"dreamcatcher/infrastructure/observability"
	"dreamcatcher/infrastructure/persistence/memory"
)

type dispatchCall struct {
	agentID string
	task    agents.Task
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, agentID string, task agents.Task) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{agentID: agentID, task: task})
	return nil, f.err
}

func (f *fakeDispatcher) users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.task.UserID)
	}
	return out
}

type fakeBackfiller struct{ batches []int }

func (f *fakeBackfiller) Backfill(ctx context.Context, batch int) (services.BackfillResult, error) {
	f.batches = append(f.batches, batch)
	return services.BackfillResult{Processed: batch}, nil
}

type fakeSweeper struct{ calls atomic.Int32 }

func (f *fakeSweeper) Sweep(ctx context.Context) int {
	f.calls.Add(1)
	return 0
}

func TestScheduler_Lifecycle(t *testing.T) {
	t.Run("Should run jobs on their interval and stop cleanly", func(t *testing.T) {
		s := New(nil, zap.NewNop())
		var runs atomic.Int32
		require.NoError(t, s.Add(Job{Name: "tick", Interval: 10 * time.Millisecond, Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}}))

		require.NoError(t, s.Start(context.Background()))
		assert.Error(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
		s.Stop()

		after := runs.Load()
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, after, runs.Load())
		s.Stop()
	})

	t.Run("Should reject bad and duplicate jobs and skip disabled ones", func(t *testing.T) {
		s := New(nil, nil)
		noop := func(ctx context.Context) error { return nil }

		assert.Error(t, s.Add(Job{Interval: time.Second, Run: noop}))
		assert.Error(t, s.Add(Job{Name: "x", Interval: time.Second}))
		require.NoError(t, s.Add(Job{Name: "x", Interval: time.Second, Run: noop}))
		assert.Error(t, s.Add(Job{Name: "x", Interval: time.Second, Run: noop}))
		require.NoError(t, s.Add(Job{Name: "off", Interval: 0, Run: noop}))

		status := s.Status()
		require.Len(t, status, 1)
		assert.Equal(t, "x", status[0].Name)
	})
}

func TestScheduler_RunNow(t *testing.T) {
	ctx := context.Background()

	t.Run("Should never overlap a running job", func(t *testing.T) {
		s := New(nil, nil)
		release := make(chan struct{})
		started := make(chan struct{})
		require.NoError(t, s.Add(Job{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		}}))

		done := make(chan bool)
		go func() {
			ran, _ := s.RunNow(ctx, "slow")
			done <- ran
		}()
		<-started

		ran, err := s.RunNow(ctx, "slow")
		require.NoError(t, err)
		assert.False(t, ran)
		assert.True(t, s.Status()[0].Running)

		close(release)
		assert.True(t, <-done)
		assert.Equal(t, int64(1), s.Status()[0].Runs)
	})

	t.Run("Should count failures and recover panics", func(t *testing.T) {
		metrics := observability.NewCollector("test")
		s := New(metrics, nil)
		require.NoError(t, s.Add(Job{Name: "fails", Interval: time.Hour, Run: func(ctx context.Context) error {
			return errors.New("boom")
		}}))
		require.NoError(t, s.Add(Job{Name: "panics", Interval: time.Hour, Run: func(ctx context.Context) error {
			panic("bad job")
		}}))

		_, err := s.RunNow(ctx, "fails")
		assert.EqualError(t, err, "boom")
		_, err = s.RunNow(ctx, "panics")
		assert.ErrorContains(t, err, "bad job")

		for _, st := range s.Status() {
			assert.Equal(t, int64(1), st.Failures, st.Name)
			assert.False(t, st.Running, st.Name)
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SchedulerRuns.WithLabelValues("fails", "error")))
	})

	t.Run("Should report unknown jobs", func(t *testing.T) {
		_, err := New(nil, nil).RunNow(ctx, "missing")
		assert.Error(t, err)
	})
}

func saveIdea(t *testing.T, store *memory.Store, userID string, urgency float64) {
	t.Helper()
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     userID,
		Content:    "idea for " + userID,
		SourceType: valueobjects.SourceText,
		Urgency:    urgency,
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveIdea(context.Background(), idea))
}

func TestDefaultJobs(t *testing.T) {
	ctx := context.Background()
	cfg := config.SchedulerConfig{
		StaleReview:        time.Hour,
		PriorityReview:     30 * time.Minute,
		PatternReview:      7 * 24 * time.Hour,
		EmbeddingBackfill:  5 * time.Minute,
		EmbeddingBatchSize: 10,
		LogCleanup:         24 * time.Hour,
		LogRetention:       30 * 24 * time.Hour,
	}
	future := func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }

	newScheduler := func(t *testing.T, deps Deps) *Scheduler {
		t.Helper()
		s := New(nil, nil)
		for _, j := range DefaultJobs(cfg, time.Minute, deps) {
			require.NoError(t, s.Add(j))
		}
		return s
	}

	t.Run("Should register only jobs with collaborators", func(t *testing.T) {
		s := newScheduler(t, Deps{Embeddings: &fakeBackfiller{}})
		require.Len(t, s.Status(), 1)
		assert.Equal(t, JobEmbeddingBackfill, s.Status()[0].Name)
	})

	t.Run("Should review each user with stale important ideas once", func(t *testing.T) {
		store := memory.NewStore()
		saveIdea(t, store, "u1", 80)
		saveIdea(t, store, "u1", 70)
		saveIdea(t, store, "u2", 90)
		saveIdea(t, store, "u3", 10)
		d := &fakeDispatcher{}

		s := newScheduler(t, Deps{Agents: d, Ideas: store, Now: future})
		ran, err := s.RunNow(ctx, JobStaleReview)
		require.NoError(t, err)
		assert.True(t, ran)

		assert.ElementsMatch(t, []string{"u1", "u2"}, d.users())
		for _, c := range d.calls {
			assert.Equal(t, agents.ReviewerID, c.agentID)
			assert.Equal(t, domainservices.StrategyTimeBased, c.task.Payload["strategy"])
		}
	})

	t.Run("Should cap the users reviewed per run", func(t *testing.T) {
		store := memory.NewStore()
		saveIdea(t, store, "u1", 80)
		saveIdea(t, store, "u2", 90)
		d := &fakeDispatcher{}
		tuning := config.DefaultDynamicConfig().Review
		tuning.StaleBatch = 1

		s := newScheduler(t, Deps{Agents: d, Ideas: store, Now: future, Tuning: func() config.ReviewTuning { return tuning }})
		_, err := s.RunNow(ctx, JobStaleReview)
		require.NoError(t, err)
		assert.Len(t, d.users(), 1)
	})

	t.Run("Should ask the reviewer for priority and pattern reviews", func(t *testing.T) {
		d := &fakeDispatcher{}
		s := newScheduler(t, Deps{Agents: d})

		_, err := s.RunNow(ctx, JobPriorityReview)
		require.NoError(t, err)
		_, err = s.RunNow(ctx, JobPatternReview)
		require.NoError(t, err)

		require.Len(t, d.calls, 2)
		assert.Equal(t, "priority", d.calls[0].task.Payload["review_type"])
		assert.Equal(t, domainservices.StrategyPriorityQueue, d.calls[0].task.Payload["strategy"])
		assert.Equal(t, domainservices.StrategyPatternBased, d.calls[1].task.Payload["strategy"])
		assert.Empty(t, d.calls[0].task.UserID)
	})

	t.Run("Should backfill embeddings with the configured batch", func(t *testing.T) {
		b := &fakeBackfiller{}
		s := newScheduler(t, Deps{Embeddings: b})
		_, err := s.RunNow(ctx, JobEmbeddingBackfill)
		require.NoError(t, err)
		assert.Equal(t, []int{10}, b.batches)
	})

	t.Run("Should sweep notifications", func(t *testing.T) {
		sw := &fakeSweeper{}
		s := newScheduler(t, Deps{Notifications: sw})
		_, err := s.RunNow(ctx, JobNotificationSweep)
		require.NoError(t, err)
		assert.Equal(t, int32(1), sw.calls.Load())
	})

	t.Run("Should delete agent logs past retention", func(t *testing.T) {
		store := memory.NewStore()
		now := time.Now()
		require.NoError(t, store.SaveAgentLog(ctx, &entities.AgentLog{ID: "old", AgentID: "listener", StartedAt: now.Add(-40 * 24 * time.Hour)}))
		require.NoError(t, store.SaveAgentLog(ctx, &entities.AgentLog{ID: "new", AgentID: "listener", StartedAt: now.Add(-time.Hour)}))

		s := newScheduler(t, Deps{Logs: store, Now: func() time.Time { return now }})
		_, err := s.RunNow(ctx, JobLogCleanup)
		require.NoError(t, err)

		logs, err := store.ListAgentLogs(ctx, "listener", 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "new", logs[0].ID)
	})
}
