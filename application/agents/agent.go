// Package agents implements the idea processing pipeline. Each agent handles
// one stage and hands the idea on to the next through a TaskSubmitter:
//
//	listener -> classifier -> expander -> visualizer -> proposer -> reviewer
//	                     \-> semantic
//
// Agents share their bookkeeping through BaseAgent, which records an
// AgentLog per task, publishes agent.status events and keeps the counters
// reported by the status endpoint.
package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/events"
	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Agent identifiers.
const (
	ListenerID   = "listener"
	ClassifierID = "classifier"
	ExpanderID   = "expander"
	VisualizerID = "visualizer"
	ProposerID   = "proposer"
	ReviewerID   = "reviewer"
	SemanticID   = "semantic"
)

// Agent status values carried by agent.status events.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task is a unit of work for one agent.
type Task = ports.AgentTask

// Info describes an agent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Agent is a single pipeline stage.
type Agent interface {
	Info() Info
	Handle(ctx context.Context, task Task) (map[string]interface{}, error)
	Stats() entities.AgentStats
	SetActive(active bool)
}

// ProcessFunc does an agent's actual work and returns its output.
type ProcessFunc func(ctx context.Context, task Task) (map[string]interface{}, error)

// Deps are the collaborators every agent shares.
type Deps struct {
	Logs      ports.AgentLogRepository
	Publisher ports.EventPublisher
	Metrics   *observability.Collector
	Logger    *zap.Logger
}

// BaseAgent wraps a ProcessFunc with logging, tracing, metrics and counters.
type BaseAgent struct {
	info    Info
	process ProcessFunc
	deps    Deps
	logger  *zap.Logger

	mu            sync.Mutex
	active        bool
	processed     int64
	succeeded     int64
	failed        int64
	totalDuration time.Duration
	lastActive    time.Time
}

// NewBaseAgent creates an active agent.
func NewBaseAgent(info Info, deps Deps, process ProcessFunc) *BaseAgent {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	return &BaseAgent{
		info:    info,
		process: process,
		deps:    deps,
		logger:  logger.With(zap.String("agent", info.ID)),
		active:  true,
	}
}

// Info returns the agent's description.
func (a *BaseAgent) Info() Info { return a.info }

// SetActive enables or disables the agent.
func (a *BaseAgent) SetActive(active bool) {
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()
}

// IsActive reports whether the agent accepts work.
func (a *BaseAgent) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Stats returns a snapshot of the agent's counters.
func (a *BaseAgent) Stats() entities.AgentStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := entities.AgentStats{
		ID:             a.info.ID,
		Name:           a.info.Name,
		Description:    a.info.Description,
		Version:        a.info.Version,
		Active:         a.active,
		TotalProcessed: a.processed,
		Succeeded:      a.succeeded,
		Failed:         a.failed,
		LastActive:     a.lastActive,
	}
	if a.processed > 0 {
		s.AvgDurationMS = float64(a.totalDuration.Milliseconds()) / float64(a.processed)
	}
	return s
}

// Handle runs the agent on task. A panic in the agent is reported as an
// internal error.
func (a *BaseAgent) Handle(ctx context.Context, task Task) (out map[string]interface{}, err error) {
	if !a.IsActive() {
		return nil, pkgerrors.NewUnavailable("agent " + a.info.ID)
	}

	ideaID := ""
	if !task.IdeaID.IsZero() {
		ideaID = task.IdeaID.String()
	}

	ctx, span := observability.StartSpan(ctx, "agent."+a.info.ID,
		attribute.String("agent.id", a.info.ID),
		attribute.String("idea.id", ideaID),
	)
	entry := entities.NewAgentLog(a.info.ID, ideaID, "process", task.Payload)
	a.publishStatus(ctx, StatusProcessing, ideaID, task.UserID, "")
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = pkgerrors.NewInternal(fmt.Sprintf("agent %s panicked: %v", a.info.ID, r))
		}
		d := time.Since(start)
		entry.Finish(out, err)
		a.record(d, err)
		a.deps.Metrics.RecordAgentTask(a.info.ID, err, d)
		observability.EndSpan(span, err)

		// the task context may be cancelled by now
		bg := context.WithoutCancel(ctx)
		if a.deps.Logs != nil {
			if saveErr := a.deps.Logs.SaveAgentLog(bg, entry); saveErr != nil {
				a.logger.Warn("Failed to save agent log", zap.Error(saveErr))
			}
		}
		if err != nil {
			a.logger.Error("Agent task failed",
				zap.String("idea_id", ideaID),
				zap.Duration("duration", d),
				zap.Error(err),
			)
			a.publishStatus(bg, StatusFailed, ideaID, task.UserID, err.Error())
			return
		}
		a.logger.Debug("Agent task completed",
			zap.String("idea_id", ideaID),
			zap.Duration("duration", d),
		)
		a.publishStatus(bg, StatusCompleted, ideaID, task.UserID, "")
	}()

	return a.process(ctx, task)
}

func (a *BaseAgent) record(d time.Duration, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processed++
	if err != nil {
		a.failed++
	} else {
		a.succeeded++
	}
	a.totalDuration += d
	a.lastActive = time.Now().UTC()
}

func (a *BaseAgent) publishStatus(ctx context.Context, status, ideaID, userID, errMsg string) {
	if a.deps.Publisher == nil {
		return
	}
	evt := events.NewAgentStatusChanged(a.info.ID, status, ideaID, userID, errMsg)
	if err := a.deps.Publisher.Publish(ctx, evt); err != nil {
		a.logger.Warn("Failed to publish agent status", zap.String("status", status), zap.Error(err))
	}
}

// publish sends the aggregate's pending events and marks them committed.
func publish(ctx context.Context, deps Deps, agg interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}) {
	evts := agg.GetUncommittedEvents()
	if len(evts) == 0 {
		return
	}
	if deps.Publisher != nil {
		if err := deps.Publisher.Publish(ctx, evts...); err != nil && deps.Logger != nil {
			deps.Logger.Warn("Failed to publish events", zap.Int("count", len(evts)), zap.Error(err))
		}
	}
	agg.MarkEventsAsCommitted()
}

// submit hands a task to the next agent and logs, rather than fails, when
// the pipeline refuses it.
func submit(next ports.TaskSubmitter, logger *zap.Logger, agentID string, task Task) bool {
	if next == nil {
		return false
	}
	if err := next.Submit(agentID, task); err != nil {
		logger.Warn("Failed to hand over task",
			zap.String("next_agent", agentID),
			zap.String("idea_id", task.IdeaID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}

func payloadString(p map[string]interface{}, key, fallback string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
