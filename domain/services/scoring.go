package services

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

// Scorer applies the keyword heuristics that run with or without an LLM.
type Scorer struct {
	rules Rules
}

// NewScorer creates a Scorer with the given rules.
func NewScorer(rules Rules) *Scorer {
	return &Scorer{rules: rules}
}

// Rules returns the rules in effect.
func (s *Scorer) Rules() Rules {
	return s.rules
}

// SharedScorer holds the Scorer in effect and lets it be swapped when the
// rules are reloaded.
type SharedScorer struct {
	p atomic.Pointer[Scorer]
}

// NewSharedScorer creates a holder for rules.
func NewSharedScorer(rules Rules) *SharedScorer {
	s := &SharedScorer{}
	s.Update(rules)
	return s
}

// Get returns the current Scorer.
func (s *SharedScorer) Get() *Scorer {
	return s.p.Load()
}

// Update replaces the rules.
func (s *SharedScorer) Update(rules Rules) {
	s.p.Store(NewScorer(rules))
}

// CaptureUrgency scores urgency at capture time from the caller's hint and
// the wording of the content.
func (s *Scorer) CaptureUrgency(content string, hint valueobjects.UrgencyHint) float64 {
	multiplier, ok := s.rules.UrgencyMultipliers[string(hint)]
	if !ok {
		multiplier = 1.0
	}

	text := normalize(content)
	for _, kw := range s.rules.UrgentKeywords {
		if text.has(kw) {
			multiplier *= s.rules.UrgentFactor
		}
	}
	for _, kw := range s.rules.ExcitementKeywords {
		if text.has(kw) {
			multiplier *= s.rules.ExcitementFactor
		}
	}

	return math.Min(s.rules.CaptureBase*multiplier, 100)
}

// AutoTags returns the capture-time tags whose keywords appear in content.
func (s *Scorer) AutoTags(content string) []string {
	text := normalize(content)
	var tags []string
	for tag, keywords := range s.rules.AutoTags {
		if text.hasAny(keywords) {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Classify runs rule-based classification. Ideas with no category keyword
// default to utility; ties go to the category listed first.
func (s *Scorer) Classify(content string) entities.Classification {
	text := normalize(content)

	category := valueobjects.CategoryUtility
	best := 0
	var tags []string
	for _, c := range valueobjects.Categories {
		count := text.count(s.rules.CategoryKeywords[string(c)])
		if count > best {
			best = count
			category = c
		}
		if count > 0 {
			tags = append(tags, string(c))
		}
	}

	urgency := 50.0
	urgency += 20 * float64(text.count(s.rules.HighUrgencyKeywords))
	urgency += 10 * float64(text.count(s.rules.MediumUrgencyKeywords))
	urgency += 25 * float64(text.count(s.rules.ClassifierExcitement))
	urgency = math.Min(urgency, 100)

	novelty := math.Min(50+10*float64(text.count(s.rules.NoveltyKeywords)), 100)

	switch {
	case urgency > s.rules.UrgentTagAbove:
		tags = append(tags, "urgent")
	case urgency > s.rules.PriorityTagAbove:
		tags = append(tags, "high-priority")
	}

	return entities.Classification{
		Category: category,
		Urgency:  urgency,
		Novelty:  novelty,
		Tags:     entities.NormalizeTags(tags),
	}
}

// Merge combines the rule result with an LLM result: the LLM's category and
// novelty win, urgency takes the maximum and tags are unioned.
func (s *Scorer) Merge(rule, ai entities.Classification) entities.Classification {
	out := rule
	if ai.Category != "" {
		out.Category = ai.Category
	}
	out.Urgency = math.Max(rule.Urgency, ai.Urgency)
	if ai.Novelty > 0 {
		out.Novelty = ai.Novelty
	}
	out.Tags = entities.NormalizeTags(append(append([]string{}, rule.Tags...), ai.Tags...))
	out.AIAssisted = true
	return out
}

// ShouldExpand reports whether a classified idea is worth expanding.
func (s *Scorer) ShouldExpand(c entities.Classification) bool {
	if c.Urgency > s.rules.ExpandUrgency || c.Novelty > s.rules.ExpandNovelty {
		return true
	}
	for _, t := range c.Tags {
		if t == "urgent" {
			return true
		}
	}
	return false
}

// DreamProfile classifies a dream without further processing.
func (s *Scorer) DreamProfile(content, dreamType string) entities.Classification {
	tags := []string{"dream"}
	if dt := strings.ToLower(strings.TrimSpace(dreamType)); dt != "" && dt != "regular" {
		tags = append(tags, dt)
	}
	if normalize(content).hasAny(s.rules.SpiritualKeywords) {
		tags = append(tags, "metaphysical")
	}
	return entities.Classification{
		Category: valueobjects.CategoryMetaphysical,
		Urgency:  s.rules.DreamUrgency,
		Novelty:  50,
		Tags:     entities.NormalizeTags(tags),
	}
}

// UrgencyBucket groups a score into low, medium or high.
func UrgencyBucket(score float64) string {
	switch {
	case score < 40:
		return "low"
	case score < 70:
		return "medium"
	default:
		return "high"
	}
}

// text is content lower-cased with punctuation folded to single spaces and
// padded. A keyword matches when some word starts with it, so "apps" and
// "urgently" hit while "happy" does not hit "app".
type text string

func normalize(content string) text {
	var b strings.Builder
	b.Grow(len(content) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(content) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return text(b.String())
}

func (t text) has(keyword string) bool {
	kw := strings.TrimSpace(strings.ToLower(keyword))
	if kw == "" {
		return false
	}
	return strings.Contains(string(t), " "+kw)
}

func (t text) hasAny(keywords []string) bool {
	for _, kw := range keywords {
		if t.has(kw) {
			return true
		}
	}
	return false
}

func (t text) count(keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if t.has(kw) {
			n++
		}
	}
	return n
}
