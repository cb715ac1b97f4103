package di

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dreamcatcher/application/agents"
	"dreamcatcher/application/ports"
	"dreamcatcher/application/scheduler"
	"dreamcatcher/application/services"
	domainservices "dreamcatcher/domain/services"
	"dreamcatcher/infrastructure/cache"
	"dreamcatcher/infrastructure/comfyui"
	"dreamcatcher/infrastructure/config"
	"dreamcatcher/infrastructure/embeddings"
	"dreamcatcher/infrastructure/llm"
	"dreamcatcher/infrastructure/messaging"
	"dreamcatcher/infrastructure/observability"
	"dreamcatcher/infrastructure/persistence/memory"
	"dreamcatcher/infrastructure/persistence/postgres"
	"dreamcatcher/infrastructure/transcription"
	"dreamcatcher/interfaces/http/rest"
	"dreamcatcher/interfaces/websocket"
	pkgerrors "dreamcatcher/pkg/errors"
)

const mockTranscript = "Voice note captured without a transcription service"

// InstanceID identifies this process on the shared event channel.
type InstanceID string

// ProvideInstanceID creates a random instance identifier.
func ProvideInstanceID() InstanceID {
	return InstanceID(uuid.New().String())
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

// ProvideMetrics creates the Prometheus collector. Nil when metrics are off;
// every recorder tolerates a nil collector.
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	if !cfg.EnableMetrics {
		return nil
	}
	return observability.NewCollector("dreamcatcher")
}

// ProvideTracing installs the OTLP tracer when tracing is enabled.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing || cfg.TracingURL == "" {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: "dreamcatcher",
		Version:     cfg.Version,
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingURL,
		SampleRate:  cfg.TraceSampleRate,
		Insecure:    !cfg.IsProduction(),
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Tracing enabled", zap.String("endpoint", cfg.TracingURL), zap.Float64("sample_rate", cfg.TraceSampleRate))
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideErrorHandler creates the HTTP error renderer.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideStore opens PostgreSQL when DATABASE_URL is set and falls back to
// the in-memory store otherwise.
func ProvideStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return memory.NewStore(), func() {}, nil
	}

	if err := postgres.Migrate(ctx, cfg.DatabaseURL, cfg.Embedding.Dimension); err != nil {
		return nil, nil, err
	}
	pool, err := postgres.Connect(ctx, postgres.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConn}, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(pool), pool.Close, nil
}

// ProvideRedis connects to Redis when REDIS_URL is set. An unreachable
// server is logged and treated as absent.
func ProvideRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, continuing without shared cache and event relay", zap.Error(err))
		_ = client.Close()
		return nil, func() {}, nil
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr))
	return client, func() { _ = client.Close() }, nil
}

// ProvideSettingsCache caches merged settings in Redis when it is available.
func ProvideSettingsCache(client redis.UniversalClient, cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) ports.SettingsCache {
	if client == nil {
		return nil
	}
	return cache.NewRedisSettings(client, cfg.SettingsTTL, metrics, logger)
}

// ProvideHub creates the websocket hub.
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics, logger)
}

// ProvideEventPublisher fans events out to the local hub, the Redis relay
// and EventBridge, whichever are configured.
func ProvideEventPublisher(
	ctx context.Context,
	cfg *config.Config,
	hub *websocket.Hub,
	client redis.UniversalClient,
	instance InstanceID,
	logger *zap.Logger,
) (*messaging.MultiPublisher, error) {
	pub := messaging.NewMultiPublisher(logger, hub)
	if client != nil {
		pub.Add(messaging.NewRedisPublisher(client, cfg.EventChannel, string(instance), logger))
	}
	if cfg.EventBusName != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		pub.Add(messaging.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, cfg.EventSource, logger))
		logger.Info("EventBridge publishing enabled", zap.String("event_bus", cfg.EventBusName))
	}
	return pub, nil
}

// ProvideRedisSubscriber relays events published by other instances to the
// local hub. Nil without Redis.
func ProvideRedisSubscriber(client redis.UniversalClient, cfg *config.Config, hub *websocket.Hub, instance InstanceID, logger *zap.Logger) *messaging.RedisSubscriber {
	if client == nil {
		return nil
	}
	return messaging.NewRedisSubscriber(client, cfg.EventChannel, string(instance), hub, logger)
}

// ProvideConfigWatcher watches the dynamic config file. Nil when no file is
// configured.
func ProvideConfigWatcher(cfg *config.Config, logger *zap.Logger) (*config.ConfigWatcher, error) {
	if cfg.DynamicConfig == "" {
		return nil, nil
	}
	return config.NewConfigWatcher(cfg.DynamicConfig, logger)
}

// ProvideScorer creates the shared scorer from the dynamic config, or the
// built-in rules without one.
func ProvideScorer(watcher *config.ConfigWatcher) *domainservices.SharedScorer {
	if watcher == nil {
		return domainservices.NewSharedScorer(domainservices.DefaultRules())
	}
	return domainservices.NewSharedScorer(watcher.GetCurrent().Scoring)
}

// ProvideIntelligence builds the guarded LLM chain. Anthropic is preferred,
// OpenAI is the fallback. With neither key the service reports unavailable
// and the agents use their rule-based paths.
func ProvideIntelligence(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) ports.IdeaIntelligence {
	guard := llm.GuardConfig{
		RequestsPerSec:   cfg.LLM.RequestsPerSec,
		Burst:            cfg.LLM.Burst,
		Timeout:          cfg.LLM.Timeout,
		FailureThreshold: cfg.LLM.BreakerThreshold,
		MinRequests:      cfg.LLM.BreakerMinCalls,
		Cooldown:         cfg.LLM.BreakerCooldown,
	}

	var chain []llm.Provider
	if cfg.LLM.AnthropicAPIKey != "" {
		p, err := llm.NewAnthropicProvider(cfg.LLM.AnthropicAPIKey, cfg.LLM.AnthropicModel)
		if err != nil {
			logger.Warn("Anthropic provider disabled", zap.Error(err))
		} else {
			chain = append(chain, llm.NewGuardedProvider(p, guard, metrics, logger))
		}
	}
	if cfg.LLM.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel, cfg.LLM.OpenAIBaseURL)
		if err != nil {
			logger.Warn("OpenAI provider disabled", zap.Error(err))
		} else {
			chain = append(chain, llm.NewGuardedProvider(p, guard, metrics, logger))
		}
	}

	switch len(chain) {
	case 0:
		logger.Warn("No LLM provider configured, agents will use rule-based analysis")
		return llm.NewService(nil)
	case 1:
		return llm.NewService(chain[0])
	default:
		return llm.NewService(llm.NewFallbackProvider(logger, chain...))
	}
}

// ProvideEmbedder uses OpenAI embeddings when a key is configured and the
// local hashing embedder otherwise.
func ProvideEmbedder(cfg *config.Config, logger *zap.Logger) ports.Embedder {
	if cfg.LLM.OpenAIAPIKey != "" {
		e, err := embeddings.NewOpenAIEmbedder(embeddings.Config{
			BaseURL:   cfg.LLM.OpenAIBaseURL,
			Model:     cfg.Embedding.Model,
			APIKey:    cfg.LLM.OpenAIAPIKey,
			Dimension: cfg.Embedding.Dimension,
		})
		if err == nil {
			return e
		}
		logger.Warn("OpenAI embeddings disabled", zap.Error(err))
	}
	logger.Info("Using local hash embeddings", zap.Int("dimension", cfg.Embedding.Dimension))
	return embeddings.NewHashEmbedder(cfg.Embedding.Dimension)
}

// ProvideImageGenerator connects to ComfyUI when COMFYUI_URL is set.
func ProvideImageGenerator(cfg *config.Config, logger *zap.Logger) ports.ImageGenerator {
	if cfg.ComfyUIURL == "" {
		return nil
	}
	return comfyui.NewClient(comfyui.Config{BaseURL: cfg.ComfyUIURL}, logger)
}

// ProvideTranscriber uses the Whisper API when an OpenAI key is configured.
// Outside production a missing key selects a mock that returns a fixed
// transcript; in production voice capture reports itself unavailable.
func ProvideTranscriber(cfg *config.Config) ports.Transcriber {
	if cfg.LLM.OpenAIAPIKey == "" {
		if cfg.IsProduction() {
			return nil
		}
		return &transcription.MockTranscriber{Text: mockTranscript}
	}
	return transcription.NewWhisperClient(cfg.LLM.OpenAIBaseURL, cfg.LLM.OpenAIAPIKey, cfg.LLM.WhisperModel, "")
}

// ProvideSettingsService creates the settings service.
func ProvideSettingsService(store ports.Store, settingsCache ports.SettingsCache, logger *zap.Logger) *services.SettingsService {
	return services.NewSettingsService(store, settingsCache, logger)
}

// ProvideNotificationDispatcher creates the in-memory notification center.
func ProvideNotificationDispatcher(
	cfg *config.Config,
	publisher ports.EventPublisher,
	settings *services.SettingsService,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.Dispatcher {
	return services.NewDispatcher(services.DispatcherConfig{
		MaxPerUser:       cfg.Notifications.MaxPerUser,
		DefaultTTL:       cfg.Notifications.DefaultTTL,
		AutoDismissAfter: cfg.Notifications.AutoDismissAfter,
	}, publisher, settings, metrics, logger)
}

// ProvideRegistry creates an empty agent registry.
func ProvideRegistry(logger *zap.Logger) *agents.Registry {
	return agents.NewRegistry(logger)
}

// ProvidePipeline creates the worker pool and registers the standard agents
// on it.
func ProvidePipeline(
	cfg *config.Config,
	registry *agents.Registry,
	store ports.Store,
	scorer *domainservices.SharedScorer,
	ai ports.IdeaIntelligence,
	images ports.ImageGenerator,
	embedder ports.Embedder,
	notifier *services.Dispatcher,
	settings *services.SettingsService,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*agents.Pipeline, error) {
	pipeline := agents.NewPipeline(registry, agents.PipelineConfig{
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		TaskTimeout: cfg.Pipeline.TaskTimeout,
	}, metrics, logger)

	err := agents.RegisterDefaults(registry, pipeline, agents.Deps{
		Logs:      store,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	}, agents.Collaborators{
		Store:      store,
		Scorer:     scorer,
		AI:         ai,
		Images:     images,
		Embedder:   embedder,
		Notifier:   notifier,
		AutoExpand: settings.AutoExpand,
	})
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

// ProvideCaptureService creates the capture service.
func ProvideCaptureService(
	cfg *config.Config,
	store ports.Store,
	transcriber ports.Transcriber,
	scorer *domainservices.SharedScorer,
	pipeline *agents.Pipeline,
	publisher ports.EventPublisher,
	settings *services.SettingsService,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.CaptureService {
	return services.NewCaptureService(services.CaptureConfig{
		Ideas:       store,
		Transcriber: transcriber,
		Scorer:      scorer,
		Pipeline:    pipeline,
		Publisher:   publisher,
		Defaults:    settings,
		Metrics:     metrics,
		UploadDir:   cfg.UploadDir,
		Logger:      logger,
	})
}

// ProvideIdeaService creates the idea service.
func ProvideIdeaService(store ports.Store, logger *zap.Logger) *services.IdeaService {
	return services.NewIdeaService(store, store, store, logger)
}

// ProvideProposalService creates the proposal service.
func ProvideProposalService(store ports.Store, publisher ports.EventPublisher, metrics *observability.Collector, logger *zap.Logger) *services.ProposalService {
	return services.NewProposalService(store, publisher, metrics, logger)
}

// ProvideSemanticService creates the semantic search service, seeded with
// the dynamic search defaults.
func ProvideSemanticService(store ports.Store, embedder ports.Embedder, watcher *config.ConfigWatcher, logger *zap.Logger) *services.SemanticService {
	svc := services.NewSemanticService(store, store, embedder, logger)
	if watcher != nil {
		svc.SetDefaults(searchDefaults(watcher.GetCurrent().Search))
	}
	return svc
}

// ProvideAgentService creates the agent status service.
func ProvideAgentService(registry *agents.Registry, pipeline *agents.Pipeline, logger *zap.Logger) *services.AgentService {
	return services.NewAgentService(registry, pipeline, logger)
}

// ProvideStatsService creates the dashboard statistics service.
func ProvideStatsService(store ports.Store, pipeline *agents.Pipeline) *services.StatsService {
	return services.NewStatsService(store, store, pipeline)
}

// ProvideScheduler registers the background jobs. The jobs only run once
// the container is started with the scheduler enabled.
func ProvideScheduler(
	cfg *config.Config,
	registry *agents.Registry,
	store ports.Store,
	semantic *services.SemanticService,
	notifications *services.Dispatcher,
	watcher *config.ConfigWatcher,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(metrics, logger)
	deps := scheduler.Deps{
		Agents:        registry,
		Ideas:         store,
		Logs:          store,
		Embeddings:    semantic,
		Notifications: notifications,
		Logger:        logger,
	}
	if watcher != nil {
		deps.Tuning = func() config.ReviewTuning { return watcher.GetCurrent().Review }
	}
	for _, job := range scheduler.DefaultJobs(cfg.Scheduler, cfg.Notifications.SweepInterval, deps) {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ProvideWebsocketServer creates the websocket upgrade handler.
func ProvideWebsocketServer(cfg *config.Config, hub *websocket.Hub, logger *zap.Logger) *websocket.Server {
	wsCfg := websocket.DefaultServerConfig()
	wsCfg.AllowedOrigins = cfg.AllowedOrigins
	wsCfg.DefaultUserID = cfg.DefaultUserID
	return websocket.NewServer(hub, wsCfg, logger)
}

// ProvideRouter assembles the HTTP API.
func ProvideRouter(
	cfg *config.Config,
	store ports.Store,
	client redis.UniversalClient,
	capture *services.CaptureService,
	ideas *services.IdeaService,
	semantic *services.SemanticService,
	proposals *services.ProposalService,
	agentService *services.AgentService,
	stats *services.StatsService,
	settings *services.SettingsService,
	notifications *services.Dispatcher,
	ws *websocket.Server,
	metrics *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	readiness := map[string]rest.ReadinessCheck{"database": store.Ping}
	if client != nil {
		readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return rest.NewRouter(rest.Dependencies{
		Capture:       capture,
		Ideas:         ideas,
		Semantic:      semantic,
		Proposals:     proposals,
		Agents:        agentService,
		Stats:         stats,
		Settings:      settings,
		Notifications: notifications,
		Websocket:     ws,
		Metrics:       metrics,
		Readiness:     readiness,
	}, rest.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultUserID:  cfg.DefaultUserID,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CaptureRPS:     cfg.CaptureRPS,
		CaptureBurst:   cfg.CaptureBurst,
	}, logger, errorHandler)
}

func searchDefaults(t config.SearchTuning) services.SearchDefaults {
	return services.SearchDefaults{
		Limit:            t.Limit,
		Threshold:        t.Threshold,
		RelatedLimit:     t.RelatedLimit,
		RelatedThreshold: t.RelatedThreshold,
	}
}
