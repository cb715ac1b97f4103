package events

// PreviewLength is the number of characters of idea content carried in events.
const PreviewLength = 100

// IdeaCaptured is raised when a new idea is stored.
type IdeaCaptured struct {
	BaseEvent
	SourceType   string   `json:"source_type"`
	Preview      string   `json:"content_preview"`
	UrgencyScore float64  `json:"urgency_score"`
	Tags         []string `json:"tags"`
}

// NewIdeaCaptured creates an IdeaCaptured event
func NewIdeaCaptured(ideaID, userID, sourceType, content string, urgency float64, tags []string) IdeaCaptured {
	return IdeaCaptured{
		BaseEvent:    newBase(TypeIdeaCaptured, ideaID, userID),
		SourceType:   sourceType,
		Preview:      Preview(content),
		UrgencyScore: urgency,
		Tags:         tags,
	}
}

// IdeaClassified is raised when the classifier has scored an idea.
type IdeaClassified struct {
	BaseEvent
	Category     string   `json:"category"`
	UrgencyScore float64  `json:"urgency_score"`
	NoveltyScore float64  `json:"novelty_score"`
	Tags         []string `json:"tags"`
	AIAssisted   bool     `json:"ai_assisted"`
}

// NewIdeaClassified creates an IdeaClassified event
func NewIdeaClassified(ideaID, userID, category string, urgency, novelty float64, tags []string, aiAssisted bool) IdeaClassified {
	return IdeaClassified{
		BaseEvent:    newBase(TypeIdeaClassified, ideaID, userID),
		Category:     category,
		UrgencyScore: urgency,
		NoveltyScore: novelty,
		Tags:         tags,
		AIAssisted:   aiAssisted,
	}
}

// IdeaExpanded is raised once expansions are stored for an idea.
type IdeaExpanded struct {
	BaseEvent
	ExpansionTypes []string `json:"expansion_types"`
}

// NewIdeaExpanded creates an IdeaExpanded event
func NewIdeaExpanded(ideaID, userID string, types []string) IdeaExpanded {
	return IdeaExpanded{BaseEvent: newBase(TypeIdeaExpanded, ideaID, userID), ExpansionTypes: types}
}

// VisualGenerated is raised when visuals (or their prompts) are stored.
type VisualGenerated struct {
	BaseEvent
	VisualIDs []string `json:"visual_ids"`
	Rendered  bool     `json:"rendered"`
}

// NewVisualGenerated creates a VisualGenerated event
func NewVisualGenerated(ideaID, userID string, visualIDs []string, rendered bool) VisualGenerated {
	return VisualGenerated{BaseEvent: newBase(TypeVisualGenerated, ideaID, userID), VisualIDs: visualIDs, Rendered: rendered}
}

// Preview truncates content for event payloads and notifications.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= PreviewLength {
		return content
	}
	return string(r[:PreviewLength]) + "..."
}
