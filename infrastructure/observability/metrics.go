package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	IdeasCaptured     *prometheus.CounterVec
	ProposalsCreated  *prometheus.CounterVec
	AgentTasks        *prometheus.CounterVec
	AgentDuration     *prometheus.HistogramVec
	LLMCalls          *prometheus.CounterVec
	LLMDuration       *prometheus.HistogramVec
	SchedulerRuns     *prometheus.CounterVec
	SchedulerDuration *prometheus.HistogramVec

	// Live gauges
	WebsocketConnections prometheus.Gauge
	Notifications        prometheus.Gauge
	PipelineQueueDepth   prometheus.Gauge

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector registered on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		IdeasCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ideas_captured_total",
			Help:      "Total number of captured ideas by source",
		}, []string{"source"}),
		ProposalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_created_total",
			Help:      "Total number of generated proposals by initial status",
		}, []string{"status"}),
		AgentTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_tasks_total",
			Help:      "Total number of agent tasks by outcome",
		}, []string{"agent", "outcome"}),
		AgentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_task_duration_seconds",
			Help:      "Agent task duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"agent"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Total number of LLM completions by provider and outcome",
		}, []string{"provider", "outcome"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "LLM completion latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
		SchedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Total number of scheduled job runs by outcome",
		}, []string{"job", "outcome"}),
		SchedulerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		WebsocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Currently open websocket connections",
		}),
		Notifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_active",
			Help:      "Notifications currently held in memory",
		}),
		PipelineQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_queue_depth",
			Help:      "Tasks waiting in the agent pipeline",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.IdeasCaptured,
		c.ProposalsCreated,
		c.AgentTasks,
		c.AgentDuration,
		c.LLMCalls,
		c.LLMDuration,
		c.SchedulerRuns,
		c.SchedulerDuration,
		c.WebsocketConnections,
		c.Notifications,
		c.PipelineQueueDepth,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordIdeaCaptured(source string) {
	if c == nil {
		return
	}
	c.IdeasCaptured.WithLabelValues(source).Inc()
}

func (c *Collector) RecordProposal(status string) {
	if c == nil {
		return
	}
	c.ProposalsCreated.WithLabelValues(status).Inc()
}

func (c *Collector) RecordAgentTask(agent string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.AgentTasks.WithLabelValues(agent, outcome(err)).Inc()
	c.AgentDuration.WithLabelValues(agent).Observe(d.Seconds())
}

func (c *Collector) RecordLLMCall(provider string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.LLMCalls.WithLabelValues(provider, outcome(err)).Inc()
	c.LLMDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (c *Collector) RecordSchedulerRun(job string, err error, d time.Duration) {
	if c == nil {
		return
	}
	c.SchedulerRuns.WithLabelValues(job, outcome(err)).Inc()
	c.SchedulerDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (c *Collector) SetWebsocketConnections(n int) {
	if c == nil {
		return
	}
	c.WebsocketConnections.Set(float64(n))
}

func (c *Collector) SetNotifications(n int) {
	if c == nil {
		return
	}
	c.Notifications.Set(float64(n))
}

func (c *Collector) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.PipelineQueueDepth.Set(float64(n))
}

func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
