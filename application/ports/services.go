package ports

import (
	"context"
	"io"
	"time"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
)

// EventPublisher delivers domain events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
	Name() string
}

// ImageGenerator renders a prompt into image files.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, style string) ([]string, error)
	Available(ctx context.Context) bool
}

// Embedder produces vectors for text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Viability is an LLM's assessment of whether an idea is worth building.
type Viability struct {
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	ProblemStatement   string             `json:"problem_statement"`
	SolutionApproach   string             `json:"solution_approach"`
	ImplementationPlan string             `json:"implementation_plan"`
	Tasks              []string           `json:"tasks"`
	Criteria           map[string]float64 `json:"criteria"`
	OverallScore       float64            `json:"overall_score"`
	PriorityScore      float64            `json:"priority_score"`
}

// IdeaIntelligence is the AI surface the agents use. Every method returns an
// error when no provider is usable; agents then fall back to rules.
type IdeaIntelligence interface {
	Available() bool
	Model() string
	ClassifyIdea(ctx context.Context, content string) (entities.Classification, error)
	ExpandIdea(ctx context.Context, content string, category string) (string, error)
	SpecializedExpansion(ctx context.Context, content string, category string) (string, error)
	VisualPrompt(ctx context.Context, content string, style string) (string, error)
	AssessViability(ctx context.Context, content string, category string, expansions []string) (*Viability, error)
}

// SettingsCache is a read-through cache for merged user settings.
type SettingsCache interface {
	GetSettings(ctx context.Context, userID string) (map[string]interface{}, bool)
	SetSettings(ctx context.Context, userID string, values map[string]interface{})
	InvalidateSettings(ctx context.Context, userID string)
}

// NotifyOptions customises a single notification.
type NotifyOptions struct {
	Kind string
	Data map[string]interface{}
	// TTL overrides the configured lifetime when positive.
	TTL time.Duration
	// AutoDismiss overrides the level default. Point at zero to keep the
	// notification until it is dismissed or expires.
	AutoDismiss *time.Duration
}

// Notifier delivers short-lived messages to a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, level entities.NotificationLevel, title, message string, opts NotifyOptions) (*entities.Notification, error)
}

// AgentTask is a unit of work for one agent.
type AgentTask struct {
	IdeaID  valueobjects.IdeaID
	UserID  string
	Payload map[string]interface{}
}

// TaskSubmitter queues agent work off the request path.
type TaskSubmitter interface {
	Submit(agentID string, task AgentTask) error
}
