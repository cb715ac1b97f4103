//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"dreamcatcher/application/ports"
	"dreamcatcher/infrastructure/config"
	"dreamcatcher/infrastructure/messaging"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideInstanceID,
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideErrorHandler,
	ProvideStore,
	ProvideRedis,
	ProvideSettingsCache,
	ProvideHub,
	ProvideEventPublisher,
	wire.Bind(new(ports.EventPublisher), new(*messaging.MultiPublisher)),
	ProvideRedisSubscriber,
	ProvideConfigWatcher,
	ProvideScorer,
	ProvideIntelligence,
	ProvideEmbedder,
	ProvideImageGenerator,
	ProvideTranscriber,
	ProvideSettingsService,
	ProvideNotificationDispatcher,
	ProvideRegistry,
	ProvidePipeline,
	ProvideCaptureService,
	ProvideIdeaService,
	ProvideProposalService,
	ProvideSemanticService,
	ProvideAgentService,
	ProvideStatsService,
	ProvideScheduler,
	ProvideWebsocketServer,
	ProvideRouter,
	wire.Struct(new(Container), "Config", "Logger", "Metrics", "Tracer", "Store", "Redis", "Hub", "Publisher",
		"Subscriber", "Watcher", "Scorer", "Registry", "Pipeline", "Capture", "Ideas", "Proposals", "Semantic",
		"Agents", "Stats", "Settings", "Notifications", "Scheduler", "Router"),
)

// InitializeContainer creates a fully wired container. The cleanup function
// closes the database, Redis and tracing connections.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
