package ports

import (
	"context"
	"time"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

// IdeaFilter narrows idea listings. Zero values mean "no filter".
type IdeaFilter struct {
	UserID          string
	Category        valueobjects.Category
	SourceType      valueobjects.SourceType
	MinUrgency      *float64
	Tag             string
	Search          string
	IncludeArchived bool
	Skip            int
	Limit           int
}

// IdeaStats aggregates idea counts for the stats endpoint.
type IdeaStats struct {
	Total          int            `json:"total_ideas"`
	BySource       map[string]int `json:"by_source"`
	ByCategory     map[string]int `json:"by_category"`
	ByStatus       map[string]int `json:"by_status"`
	UrgencyBuckets map[string]int `json:"urgency_distribution"`
	HighUrgency    int            `json:"high_urgency"`
	Archived       int            `json:"archived"`
	Favorites      int            `json:"favorites"`
}

// ScoredIdea is a similarity search hit.
type ScoredIdea struct {
	Idea       *entities.Idea `json:"idea"`
	Similarity float64        `json:"similarity"`
}

// EmbeddingStats reports vector coverage.
type EmbeddingStats struct {
	TotalIdeas  int     `json:"total_ideas"`
	Embedded    int     `json:"ideas_with_embeddings"`
	Missing     int     `json:"ideas_without_embeddings"`
	CoveragePct float64 `json:"coverage_percentage"`
	Dimension   int     `json:"embedding_dimension"`
	Model       string  `json:"model"`
}

// IdeaRepository persists ideas and their tags.
type IdeaRepository interface {
	SaveIdea(ctx context.Context, idea *entities.Idea) error
	FindIdea(ctx context.Context, id valueobjects.IdeaID) (*entities.Idea, error)
	ListIdeas(ctx context.Context, filter IdeaFilter) ([]*entities.Idea, error)
	DeleteIdea(ctx context.Context, id valueobjects.IdeaID) error

	// FindStale returns unarchived ideas untouched since before, with urgency
	// above minUrgency, oldest first.
	FindStale(ctx context.Context, before time.Time, minUrgency float64, limit int) ([]*entities.Idea, error)
	// FindDormant returns unarchived ideas captured before the cutoff, oldest
	// first. An empty userID scans every user.
	FindDormant(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.Idea, error)
	IdeaStats(ctx context.Context, userID string) (IdeaStats, error)
	ListTags(ctx context.Context) ([]entities.Tag, error)
}

// EmbeddingRepository stores idea vectors and answers similarity queries.
type EmbeddingRepository interface {
	SaveEmbedding(ctx context.Context, id valueobjects.IdeaID, vector []float32) error
	GetEmbedding(ctx context.Context, id valueobjects.IdeaID) ([]float32, error)
	// SearchSimilar returns unarchived ideas of userID whose similarity to
	// vector is at least threshold, best first. exclude may be zero.
	SearchSimilar(ctx context.Context, userID string, vector []float32, limit int, threshold float64, exclude valueobjects.IdeaID) ([]ScoredIdea, error)
	// FindMissingEmbeddings returns completed, unarchived ideas without a vector.
	FindMissingEmbeddings(ctx context.Context, limit int) ([]*entities.Idea, error)
	ClearEmbeddings(ctx context.Context) (int64, error)
	CountEmbeddings(ctx context.Context) (total int, embedded int, err error)
}

// DerivedRepository stores expansions and visuals.
type DerivedRepository interface {
	SaveExpansion(ctx context.Context, e entities.Expansion) error
	ListExpansions(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Expansion, error)
	SaveVisual(ctx context.Context, v entities.Visual) error
	ListVisuals(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Visual, error)
}

// ProposalFilter narrows proposal listings.
type ProposalFilter struct {
	UserID string
	IdeaID valueobjects.IdeaID
	Status valueobjects.ProposalStatus
	Skip   int
	Limit  int
}

// ProposalRepository persists proposals and their tasks.
type ProposalRepository interface {
	SaveProposal(ctx context.Context, p *entities.Proposal) error
	FindProposal(ctx context.Context, id string) (*entities.Proposal, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]*entities.Proposal, error)
	CountProposals(ctx context.Context, status valueobjects.ProposalStatus) (int, error)
}

// AgentLogRepository records agent activity.
type AgentLogRepository interface {
	SaveAgentLog(ctx context.Context, log *entities.AgentLog) error
	ListAgentLogs(ctx context.Context, agentID string, limit int) ([]*entities.AgentLog, error)
	DeleteAgentLogsBefore(ctx context.Context, before time.Time) (int64, error)
}

// SettingsRepository persists per-user setting overrides.
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (*entities.UserSettings, error)
	SaveSettings(ctx context.Context, settings *entities.UserSettings) error
	DeleteSettings(ctx context.Context, userID string) error
}

// Store is the full persistence surface the application needs.
type Store interface {
	IdeaRepository
	EmbeddingRepository
	DerivedRepository
	ProposalRepository
	AgentLogRepository
	SettingsRepository
	Ping(ctx context.Context) error
}
