package entities

import (
	"time"

	"github.com/google/uuid"

	"dreamcatcher/domain/core/valueobjects"
)

// DefaultTagColor is used for tags created implicitly by captures.
const DefaultTagColor = "#3B82F6"

// Tag is a label shared across ideas.
type Tag struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
	IdeaCount   int    `json:"idea_count"`
}

// Expansion is a longer write-up of an idea produced by the expander.
type Expansion struct {
	ID        string                     `json:"id"`
	IdeaID    valueobjects.IdeaID        `json:"idea_id"`
	Type      valueobjects.ExpansionType `json:"expansion_type"`
	Content   string                     `json:"content"`
	Model     string                     `json:"model_version,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
}

// NewExpansion creates an expansion row.
func NewExpansion(ideaID valueobjects.IdeaID, t valueobjects.ExpansionType, content, model string) Expansion {
	return Expansion{
		ID:        uuid.New().String(),
		IdeaID:    ideaID,
		Type:      t,
		Content:   content,
		Model:     model,
		CreatedAt: time.Now().UTC(),
	}
}

// Visual is a generated image, or the prompt for one when no renderer is
// configured.
type Visual struct {
	ID           string                 `json:"id"`
	IdeaID       valueobjects.IdeaID    `json:"idea_id"`
	Prompt       string                 `json:"prompt_used"`
	Style        string                 `json:"style"`
	StyleConfig  map[string]interface{} `json:"style_config,omitempty"`
	ImagePath    string                 `json:"image_path,omitempty"`
	Generator    string                 `json:"generator"`
	QualityScore float64                `json:"quality_score"`
	Approved     bool                   `json:"is_approved"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewVisual creates a visual row.
func NewVisual(ideaID valueobjects.IdeaID, prompt, style, generator string) Visual {
	return Visual{
		ID:        uuid.New().String(),
		IdeaID:    ideaID,
		Prompt:    prompt,
		Style:     style,
		Generator: generator,
		CreatedAt: time.Now().UTC(),
	}
}

// IdeaDetail bundles an idea with its derived records.
type IdeaDetail struct {
	*Idea
	Expansions []Expansion `json:"expansions"`
	Visuals    []Visual    `json:"visuals"`
	Proposals  []*Proposal `json:"proposals"`
}
