package agents

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// PipelineConfig sizes the worker pool.
type PipelineConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type job struct {
	agentID string
	task    Task
}

// Pipeline runs agent tasks on a fixed pool of workers fed by a bounded
// queue. Submit never blocks: when the queue is full the task is refused.
type Pipeline struct {
	registry *Registry
	cfg      PipelineConfig
	metrics  *observability.Collector
	logger   *zap.Logger

	mu      sync.RWMutex
	queue   chan job
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]int
}

var _ ports.TaskSubmitter = (*Pipeline)(nil)

// NewPipeline creates a stopped pipeline over registry.
func NewPipeline(registry *Registry, cfg PipelineConfig, metrics *observability.Collector, logger *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry: registry,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan job, cfg.QueueSize),
		pending:  make(map[string]int),
	}
}

// Start launches the workers. Cancelling ctx aborts running tasks.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx, i)
	}

	p.logger.Info("Agent pipeline started",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("queue_size", p.cfg.QueueSize),
	)
}

// Stop refuses new tasks, lets the workers drain the queue and waits for
// them to exit.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if started {
		p.wg.Wait()
		p.cancel()
	}
	p.logger.Info("Agent pipeline stopped")
}

// Submit queues task for agentID.
func (p *Pipeline) Submit(agentID string, task Task) error {
	if _, err := p.registry.Get(agentID); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return pkgerrors.NewUnavailable("agent pipeline")
	}

	p.adjustPending(agentID, 1)
	select {
	case p.queue <- job{agentID: agentID, task: task}:
		p.metrics.SetQueueDepth(len(p.queue))
		return nil
	default:
		p.adjustPending(agentID, -1)
		p.logger.Warn("Agent queue full, task dropped",
			zap.String("agent", agentID),
			zap.String("idea_id", task.IdeaID.String()),
		)
		return pkgerrors.NewUnavailable("agent pipeline").
			WithCode(pkgerrors.CodeQueueFull).
			WithDetail("agent_id", agentID)
	}
}

// Depth returns the number of queued tasks.
func (p *Pipeline) Depth() int {
	return len(p.queue)
}

// Status returns the registry's agent stats with per-agent queue depth.
func (p *Pipeline) Status() []entities.AgentStats {
	stats := p.registry.Status()
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	for i := range stats {
		stats[i].QueueDepth = p.pending[stats[i].ID]
	}
	return stats
}

func (p *Pipeline) worker(ctx context.Context, n int) {
	defer p.wg.Done()
	for j := range p.queue {
		p.adjustPending(j.agentID, -1)
		p.metrics.SetQueueDepth(len(p.queue))
		p.run(ctx, j)
	}
	p.logger.Debug("Agent worker exited", zap.Int("worker", n))
}

func (p *Pipeline) run(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}
	if p.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout)
		defer cancel()
	}
	// BaseAgent logs failures itself.
	_, _ = p.registry.Dispatch(ctx, j.agentID, j.task)
}

func (p *Pipeline) adjustPending(agentID string, delta int) {
	p.pendingMu.Lock()
	p.pending[agentID] += delta
	p.pendingMu.Unlock()
}
