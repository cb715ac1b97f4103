package entities

import (
	"sort"
	"strings"
	"time"

	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Idea is a captured user input together with everything the agents derive
// from it. Scores are kept in [0, 100].
type Idea struct {
	ID                 valueobjects.IdeaID           `json:"id"`
	UserID             string                        `json:"user_id"`
	ContentRaw         string                        `json:"content_raw"`
	ContentTranscribed string                        `json:"content_transcribed,omitempty"`
	ContentProcessed   string                        `json:"content_processed,omitempty"`
	SourceType         valueobjects.SourceType       `json:"source_type"`
	AudioPath          string                        `json:"audio_file_path,omitempty"`
	DeviceInfo         map[string]interface{}        `json:"device_info,omitempty"`
	Location           map[string]interface{}        `json:"location_data,omitempty"`
	Category           valueobjects.Category         `json:"category,omitempty"`
	UrgencyScore       float64                       `json:"urgency_score"`
	NoveltyScore       float64                       `json:"novelty_score"`
	ViabilityScore     float64                       `json:"viability_score"`
	Status             valueobjects.ProcessingStatus `json:"processing_status"`
	Archived           bool                          `json:"is_archived"`
	Favorite           bool                          `json:"is_favorite"`
	Tags               []string                      `json:"tags"`
	HasEmbedding       bool                          `json:"has_embedding"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`

	events []events.DomainEvent
}

// CaptureInput collects the fields a capture supplies.
type CaptureInput struct {
	UserID      string
	Content     string
	Transcribed string
	SourceType  valueobjects.SourceType
	AudioPath   string
	DeviceInfo  map[string]interface{}
	Location    map[string]interface{}
	Urgency     float64
	Tags        []string
}

// NewIdea creates a pending idea and records an idea.captured event.
func NewIdea(in CaptureInput) (*Idea, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, pkgerrors.NewValidation("user ID cannot be empty")
	}
	if !in.SourceType.IsValid() {
		return nil, pkgerrors.NewValidation("unknown source type: " + string(in.SourceType))
	}
	if strings.TrimSpace(in.Content) == "" && strings.TrimSpace(in.Transcribed) == "" {
		return nil, pkgerrors.NewValidation("idea content cannot be empty").WithCode(pkgerrors.CodeEmptyContent)
	}

	now := time.Now().UTC()
	idea := &Idea{
		ID:                 valueobjects.NewIdeaID(),
		UserID:             in.UserID,
		ContentRaw:         in.Content,
		ContentTranscribed: in.Transcribed,
		SourceType:         in.SourceType,
		AudioPath:          in.AudioPath,
		DeviceInfo:         in.DeviceInfo,
		Location:           in.Location,
		UrgencyScore:       ClampScore(in.Urgency),
		Status:             valueobjects.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	idea.SetTags(in.Tags)

	idea.addEvent(events.NewIdeaCaptured(
		idea.ID.String(),
		idea.UserID,
		string(idea.SourceType),
		idea.Content(),
		idea.UrgencyScore,
		idea.Tags,
	))

	return idea, nil
}

// Content returns the most refined text available for the idea.
func (i *Idea) Content() string {
	switch {
	case strings.TrimSpace(i.ContentProcessed) != "":
		return i.ContentProcessed
	case strings.TrimSpace(i.ContentTranscribed) != "":
		return i.ContentTranscribed
	default:
		return i.ContentRaw
	}
}

// SetTags replaces the tag set with normalised, de-duplicated names.
func (i *Idea) SetTags(tags []string) {
	i.Tags = NormalizeTags(tags)
}

// AddTags merges tags into the existing set.
func (i *Idea) AddTags(tags ...string) {
	i.Tags = NormalizeTags(append(append([]string{}, i.Tags...), tags...))
}

// HasTag reports whether the idea carries tag.
func (i *Idea) HasTag(tag string) bool {
	tag = normalizeTag(tag)
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// StartProcessing marks the idea as being worked on by an agent.
func (i *Idea) StartProcessing() {
	i.Status = valueobjects.StatusProcessing
	i.touch()
}

// Fail marks processing as failed.
func (i *Idea) Fail() {
	i.Status = valueobjects.StatusFailed
	i.touch()
}

// Classification is the result of scoring an idea.
type Classification struct {
	Category   valueobjects.Category
	Urgency    float64
	Novelty    float64
	Tags       []string
	AIAssisted bool
}

// ApplyClassification stores a classification, completes processing and
// records an idea.classified event.
func (i *Idea) ApplyClassification(c Classification) {
	if c.Category != "" {
		i.Category = c.Category
	}
	i.UrgencyScore = ClampScore(c.Urgency)
	i.NoveltyScore = ClampScore(c.Novelty)
	i.AddTags(c.Tags...)
	i.Status = valueobjects.StatusCompleted
	i.touch()

	i.addEvent(events.NewIdeaClassified(
		i.ID.String(),
		i.UserID,
		string(i.Category),
		i.UrgencyScore,
		i.NoveltyScore,
		i.Tags,
		c.AIAssisted,
	))
}

// SetViability stores the proposer's overall viability score.
func (i *Idea) SetViability(score float64) {
	i.ViabilityScore = ClampScore(score)
	i.touch()
}

// SetArchived archives or restores the idea.
func (i *Idea) SetArchived(archived bool) {
	i.Archived = archived
	i.touch()
}

// SetFavorite flags or unflags the idea.
func (i *Idea) SetFavorite(favorite bool) {
	i.Favorite = favorite
	i.touch()
}

// DaysSinceUpdate returns whole days since the idea last changed.
func (i *Idea) DaysSinceUpdate(now time.Time) int {
	d := now.Sub(i.UpdatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

// GetUncommittedEvents returns events raised since the last commit.
func (i *Idea) GetUncommittedEvents() []events.DomainEvent {
	return i.events
}

// MarkEventsAsCommitted clears the pending events.
func (i *Idea) MarkEventsAsCommitted() {
	i.events = nil
}

func (i *Idea) addEvent(e events.DomainEvent) {
	i.events = append(i.events, e)
}

func (i *Idea) touch() {
	i.UpdatedAt = time.Now().UTC()
}

// ClampScore bounds a score to [0, 100].
func ClampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// NormalizeTags lower-cases, trims, de-duplicates and sorts tag names.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
