package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	pkgerrors "dreamcatcher/pkg/errors"
)

func newStubAgent(id string, deps Deps, fn ProcessFunc) *BaseAgent {
	return NewBaseAgent(Info{ID: id, Name: id}, deps, fn)
}

func TestBaseAgent_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Should log success and publish status transitions", func(t *testing.T) {
		f := newFixture()
		a := newStubAgent("stub", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		})

		out, err := a.Handle(ctx, Task{IdeaID: valueobjects.NewIdeaID(), UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, true, out["ok"])

		stats := a.Stats()
		assert.Equal(t, int64(1), stats.TotalProcessed)
		assert.Equal(t, int64(1), stats.Succeeded)
		assert.False(t, stats.LastActive.IsZero())

		logs, err := f.store.ListAgentLogs(ctx, "stub", 10)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, entities.AgentLogCompleted, logs[0].Status)

		require.Len(t, f.publisher.events, 2)
		first := f.publisher.events[0].(events.AgentStatusChanged)
		last := f.publisher.events[1].(events.AgentStatusChanged)
		assert.Equal(t, StatusProcessing, first.Status)
		assert.Equal(t, StatusCompleted, last.Status)
	})

	t.Run("Should count failures and keep the error in the log", func(t *testing.T) {
		f := newFixture()
		a := newStubAgent("stub", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			return nil, errors.New("boom")
		})

		_, err := a.Handle(ctx, Task{})
		require.Error(t, err)

		assert.Equal(t, int64(1), a.Stats().Failed)
		logs, _ := f.store.ListAgentLogs(ctx, "stub", 10)
		require.Len(t, logs, 1)
		assert.Equal(t, entities.AgentLogFailed, logs[0].Status)
		assert.Equal(t, "boom", logs[0].Error)
		assert.Equal(t, StatusFailed, f.publisher.events[1].(events.AgentStatusChanged).Status)
	})

	t.Run("Should turn a panic into an internal error", func(t *testing.T) {
		f := newFixture()
		a := newStubAgent("stub", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			panic("kaboom")
		})

		_, err := a.Handle(ctx, Task{})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeInternal))
		assert.Equal(t, int64(1), a.Stats().Failed)
	})

	t.Run("Should refuse work while inactive", func(t *testing.T) {
		f := newFixture()
		called := false
		a := newStubAgent("stub", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			called = true
			return nil, nil
		})
		a.SetActive(false)

		_, err := a.Handle(ctx, Task{})
		assert.True(t, pkgerrors.IsUnavailable(err))
		assert.False(t, called)
		assert.False(t, a.Stats().Active)
	})
}

func TestRegistry(t *testing.T) {
	f := newFixture()
	noop := func(ctx context.Context, task Task) (map[string]interface{}, error) {
		return map[string]interface{}{"agent": "b"}, nil
	}
	reg := NewRegistry(zap.NewNop())
	require.NoError(t, reg.Register(newStubAgent("b", f.deps, noop)))
	require.NoError(t, reg.Register(newStubAgent("a", f.deps, noop)))

	t.Run("Should reject duplicate IDs", func(t *testing.T) {
		err := reg.Register(newStubAgent("a", f.deps, noop))
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("Should report unknown agents as not found", func(t *testing.T) {
		_, err := reg.Get("missing")
		assert.True(t, pkgerrors.IsNotFound(err))
		_, err = reg.Dispatch(context.Background(), "missing", Task{})
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("Should list agents sorted and filter inactive ones", func(t *testing.T) {
		status := reg.Status()
		require.Len(t, status, 2)
		assert.Equal(t, "a", status[0].ID)

		a, _ := reg.Get("a")
		a.SetActive(false)
		defer a.SetActive(true)
		active := reg.List(true)
		require.Len(t, active, 1)
		assert.Equal(t, "b", active[0].Info().ID)
	})

	t.Run("Should dispatch synchronously", func(t *testing.T) {
		out, err := reg.Dispatch(context.Background(), "b", Task{})
		require.NoError(t, err)
		assert.Equal(t, "b", out["agent"])
	})
}

func TestPipeline(t *testing.T) {
	t.Run("Should refuse tasks when the queue is full", func(t *testing.T) {
		f := newFixture()
		reg := NewRegistry(nil)
		require.NoError(t, reg.Register(newStubAgent("slow", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			return nil, nil
		})))
		p := NewPipeline(reg, PipelineConfig{Workers: 1, QueueSize: 1}, nil, nil)

		require.NoError(t, p.Submit("slow", Task{}))
		err := p.Submit("slow", Task{})
		require.Error(t, err)
		appErr := pkgerrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeQueueFull, appErr.Code)
		assert.Equal(t, 1, p.Depth())
		assert.Equal(t, 1, p.Status()[0].QueueDepth)
	})

	t.Run("Should reject unknown agents", func(t *testing.T) {
		p := NewPipeline(NewRegistry(nil), PipelineConfig{}, nil, nil)
		assert.True(t, pkgerrors.IsNotFound(p.Submit("ghost", Task{})))
	})

	t.Run("Should process queued tasks and drain on stop", func(t *testing.T) {
		f := newFixture()
		done := make(chan string, 10)
		reg := NewRegistry(nil)
		require.NoError(t, reg.Register(newStubAgent("echo", f.deps, func(ctx context.Context, task Task) (map[string]interface{}, error) {
			done <- task.UserID
			return nil, nil
		})))
		p := NewPipeline(reg, PipelineConfig{Workers: 2, QueueSize: 10, TaskTimeout: time.Second}, nil, nil)

		for _, u := range []string{"u1", "u2", "u3"} {
			require.NoError(t, p.Submit("echo", Task{UserID: u}))
		}
		p.Start(context.Background())
		p.Stop()

		close(done)
		var users []string
		for u := range done {
			users = append(users, u)
		}
		assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, users)

		a, _ := reg.Get("echo")
		assert.Equal(t, int64(3), a.Stats().Succeeded)
		assert.True(t, pkgerrors.IsUnavailable(p.Submit("echo", Task{})))
	})
}
