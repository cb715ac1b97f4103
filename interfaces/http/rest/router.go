// Package rest exposes the Dreamcatcher HTTP API.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"dreamcatcher/application/services"
	"dreamcatcher/infrastructure/observability"
	"dreamcatcher/interfaces/http/rest/handlers"
	"dreamcatcher/interfaces/http/rest/middleware"
	"dreamcatcher/interfaces/websocket"
	"dreamcatcher/pkg/common"
	"dreamcatcher/pkg/errors"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Dependencies are the services the router exposes.
type Dependencies struct {
	Capture       *services.CaptureService
	Ideas         *services.IdeaService
	Semantic      *services.SemanticService
	Proposals     *services.ProposalService
	Agents        *services.AgentService
	Stats         *services.StatsService
	Settings      *services.SettingsService
	Notifications *services.Dispatcher
	Websocket     *websocket.Server
	Metrics       *observability.Collector
	Readiness     map[string]ReadinessCheck
}

// RouterConfig carries the HTTP options taken from configuration.
type RouterConfig struct {
	AllowedOrigins []string
	DefaultUserID  string
	MaxUploadBytes int64
	CaptureRPS     float64
	CaptureBurst   int
}

// Router creates and configures the HTTP router
type Router struct {
	deps         Dependencies
	cfg          RouterConfig
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewRouter creates a new router instance
func NewRouter(deps Dependencies, cfg RouterConfig, logger *zap.Logger, errorHandler *errors.ErrorHandler) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorHandler == nil {
		errorHandler = errors.NewErrorHandler(logger, false)
	}
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "default"
	}
	return &Router{deps: deps, cfg: cfg, logger: logger, errorHandler: errorHandler}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger, rt.deps.Metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", middleware.UserIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.deps.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.User(rt.cfg.DefaultUserID))

		r.Route("/capture", func(r chi.Router) {
			if rt.cfg.CaptureRPS > 0 {
				limiter := middleware.NewRateLimiter(rt.cfg.CaptureRPS, rt.cfg.CaptureBurst)
				r.Use(limiter.Middleware(rt.errorHandler))
			}
			h := handlers.NewCaptureHandler(rt.deps.Capture, rt.cfg.MaxUploadBytes, rt.errorHandler, rt.logger)
			r.Post("/text", h.CaptureText)
			r.Post("/voice", h.CaptureVoice)
			r.Post("/dream", h.CaptureDream)
		})

		ideaHandler := handlers.NewIdeaHandler(rt.deps.Ideas, rt.deps.Semantic, rt.errorHandler, rt.logger)
		r.Route("/ideas", func(r chi.Router) {
			r.Get("/", ideaHandler.ListIdeas)
			r.Get("/{ideaID}", ideaHandler.GetIdea)
			r.Patch("/{ideaID}", ideaHandler.UpdateIdea)
			r.Delete("/{ideaID}", ideaHandler.DeleteIdea)
			r.Get("/{ideaID}/related", ideaHandler.RelatedIdeas)
		})
		r.Get("/tags", ideaHandler.ListTags)

		r.Route("/search", func(r chi.Router) {
			h := handlers.NewSearchHandler(rt.deps.Semantic, rt.errorHandler, rt.logger)
			r.Get("/", h.Search)
			r.Get("/stats", h.Stats)
			r.Post("/similarity", h.Similarity)
		})

		r.Route("/proposals", func(r chi.Router) {
			h := handlers.NewProposalHandler(rt.deps.Proposals, rt.errorHandler, rt.logger)
			r.Get("/", h.ListProposals)
			r.Get("/{proposalID}", h.GetProposal)
			r.Post("/{proposalID}/approve", h.ApproveProposal)
			r.Post("/{proposalID}/reject", h.RejectProposal)
		})

		agentHandler := handlers.NewAgentHandler(rt.deps.Agents, rt.deps.Stats, rt.errorHandler, rt.logger)
		r.Get("/agents/status", agentHandler.Status)
		r.Post("/agents/review", agentHandler.TriggerReview)
		r.Get("/stats", agentHandler.Stats)

		r.Route("/settings", func(r chi.Router) {
			h := handlers.NewSettingsHandler(rt.deps.Settings, rt.errorHandler, rt.logger)
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
			r.Delete("/", h.ResetSettings)
			r.Patch("/{key}", h.SetSetting)
		})

		r.Route("/notifications", func(r chi.Router) {
			h := handlers.NewNotificationHandler(rt.deps.Notifications, rt.errorHandler, rt.logger)
			r.Get("/", h.List)
			r.Delete("/", h.Clear)
			r.Post("/read-all", h.MarkAllRead)
			r.Post("/{notificationID}/read", h.MarkRead)
			r.Delete("/{notificationID}", h.Dismiss)
		})

		if rt.deps.Websocket != nil {
			r.Get("/ws", rt.deps.Websocket.HandleWebSocket)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

func (rt *Router) allowedOrigins() []string {
	if len(rt.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return rt.cfg.AllowedOrigins
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "dreamcatcher",
	})
}

// readinessCheck runs every registered dependency check.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(rt.deps.Readiness))
	ready := true
	for name, check := range rt.deps.Readiness {
		if err := check(ctx); err != nil {
			ready = false
			checks[name] = err.Error()
			rt.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	status, state := http.StatusOK, "ready"
	if !ready {
		status, state = http.StatusServiceUnavailable, "not_ready"
	}
	common.RespondJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}
