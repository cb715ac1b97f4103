package di

import (
	"context"
	"net/http"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dreamcatcher/application/agents"
	"dreamcatcher/application/ports"
	"dreamcatcher/application/scheduler"
	"dreamcatcher/application/services"
	domainservices "dreamcatcher/domain/services"
	"dreamcatcher/infrastructure/config"
	"dreamcatcher/infrastructure/messaging"
	"dreamcatcher/infrastructure/observability"
	"dreamcatcher/interfaces/http/rest"
	"dreamcatcher/interfaces/websocket"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Collector
	Tracer        *observability.TracerProvider
	Store         ports.Store
	Redis         redis.UniversalClient
	Hub           *websocket.Hub
	Publisher     *messaging.MultiPublisher
	Subscriber    *messaging.RedisSubscriber
	Watcher       *config.ConfigWatcher
	Scorer        *domainservices.SharedScorer
	Registry      *agents.Registry
	Pipeline      *agents.Pipeline
	Capture       *services.CaptureService
	Ideas         *services.IdeaService
	Proposals     *services.ProposalService
	Semantic      *services.SemanticService
	Agents        *services.AgentService
	Stats         *services.StatsService
	Settings      *services.SettingsService
	Notifications *services.Dispatcher
	Scheduler     *scheduler.Scheduler
	Router        *rest.Router

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// Start launches the background machinery: the websocket hub, the agent
// workers, the config watcher, the Redis relay and, unless disabled or
// running in Lambda, the scheduler.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	go c.Hub.Run()
	c.Pipeline.Start(ctx)

	if c.Watcher != nil {
		c.Watcher.OnChange(func(d *config.DynamicConfig) {
			c.Scorer.Update(d.Scoring)
			c.Semantic.SetDefaults(searchDefaults(d.Search))
		})
		c.Watcher.Start()
	}

	if c.Subscriber != nil {
		go func() {
			if err := c.Subscriber.Run(ctx); err != nil {
				c.Logger.Error("Event relay stopped", zap.Error(err))
			}
		}()
	}

	if c.Config.Scheduler.Enabled && !c.Config.IsLambda {
		if err := c.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops what Start launched. Connections are released by the
// cleanup function returned with the container.
func (c *Container) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.started = false

	c.Scheduler.Stop()
	c.Pipeline.Stop()
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	c.Notifications.Stop()
	c.cancel()
	c.Hub.Stop()
}

// Handler returns the HTTP handler for the API.
func (c *Container) Handler() http.Handler {
	return c.Router.Setup()
}
