package services

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

// ReviewType sets how many ideas a review surfaces and how old they must be.
type ReviewType struct {
	Name     string `json:"name"`
	MaxIdeas int    `json:"max_ideas"`
	AgeDays  int    `json:"age_days"`
}

// ReviewTypes lists the supported review cadences.
var ReviewTypes = map[string]ReviewType{
	"daily":     {Name: "daily", MaxIdeas: 3, AgeDays: 1},
	"weekly":    {Name: "weekly", MaxIdeas: 5, AgeDays: 7},
	"monthly":   {Name: "monthly", MaxIdeas: 10, AgeDays: 30},
	"quarterly": {Name: "quarterly", MaxIdeas: 20, AgeDays: 90},
	"priority":  {Name: "priority", MaxIdeas: 1, AgeDays: 0},
}

// Review strategies.
const (
	StrategyTimeBased     = "time_based"
	StrategyContextBased  = "context_based"
	StrategyPatternBased  = "pattern_based"
	StrategySerendipity   = "serendipity"
	StrategyPriorityQueue = "priority_queue"
)

// Strategies lists every review strategy.
var Strategies = []string{
	StrategyTimeBased,
	StrategyContextBased,
	StrategyPatternBased,
	StrategySerendipity,
	StrategyPriorityQueue,
}

// Minimum scores a candidate must exceed to be surfaced.
const (
	contextThreshold = 60
	patternThreshold = 70
)

// Candidate is an idea proposed for review.
type Candidate struct {
	Idea   *entities.Idea `json:"idea"`
	Score  float64        `json:"review_priority"`
	Reason string         `json:"reason"`
}

// ReviewPlanner scores ideas for resurfacing. It is safe for concurrent use.
type ReviewPlanner struct {
	now func() time.Time

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewReviewPlanner creates a planner. A nil rnd seeds from the clock.
func NewReviewPlanner(now func() time.Time, rnd *rand.Rand) *ReviewPlanner {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ReviewPlanner{now: now, rnd: rnd}
}

// ByDormancy scores ideas by days since capture, two points per day.
func (p *ReviewPlanner) ByDormancy(ideas []*entities.Idea) []Candidate {
	now := p.now()
	out := make([]Candidate, 0, len(ideas))
	for _, idea := range ideas {
		days := int(now.Sub(idea.CreatedAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		out = append(out, Candidate{
			Idea:   idea,
			Score:  math.Min(100, float64(days*2)),
			Reason: fmt.Sprintf("Dormant for %d days", days),
		})
	}
	return out
}

// ByContext scores ideas against the current time of day and season.
func (p *ReviewPlanner) ByContext(ideas []*entities.Idea) []Candidate {
	now := p.now()
	var out []Candidate
	for _, idea := range ideas {
		score := ContextScore(idea, now)
		if score <= contextThreshold {
			continue
		}
		out = append(out, Candidate{
			Idea:   idea,
			Score:  score,
			Reason: fmt.Sprintf("High relevance to current context (%.0f%%)", score),
		})
	}
	return out
}

// ContextScore rates an idea's relevance to the moment now.
func ContextScore(idea *entities.Idea, now time.Time) float64 {
	score := 50.0
	weekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday
	evening := now.Hour() >= 18
	morning := now.Hour() < 12
	content := normalize(idea.Content())

	if weekend && idea.Category == valueobjects.CategoryPersonal {
		score += 15
	}
	if evening && idea.Category == valueobjects.CategoryCreative {
		score += 10
	}
	if morning && idea.Category == valueobjects.CategoryBusiness {
		score += 10
	}
	switch season(now) {
	case "spring":
		if content.has("new") {
			score += 10
		}
	case "winter":
		if content.has("cozy") {
			score += 10
		}
	}
	if evening && idea.Category == valueobjects.CategoryMetaphysical {
		score += 5
	}
	return math.Min(100, score)
}

// Patterns summarises what successful ideas have in common.
type Patterns struct {
	Categories map[valueobjects.Category]int
	Themes     map[string]struct{}
	AvgHour    float64
	samples    int
}

// BuildPatterns learns patterns from ideas that led somewhere.
func BuildPatterns(successful []*entities.Idea) Patterns {
	p := Patterns{
		Categories: make(map[valueobjects.Category]int),
		Themes:     make(map[string]struct{}),
	}
	hours := 0
	for _, idea := range successful {
		if idea.Category != "" {
			p.Categories[idea.Category]++
		}
		hours += idea.CreatedAt.Hour()
		for _, w := range strings.Fields(string(normalize(idea.Content()))) {
			if len([]rune(w)) > 4 {
				p.Themes[w] = struct{}{}
			}
		}
		p.samples++
	}
	if p.samples > 0 {
		p.AvgHour = float64(hours) / float64(p.samples)
	}
	return p
}

// ByPattern scores ideas by how closely they match patterns.
func (p *ReviewPlanner) ByPattern(ideas []*entities.Idea, patterns Patterns) []Candidate {
	now := p.now()
	var out []Candidate
	for _, idea := range ideas {
		score := PatternScore(idea, patterns, now)
		if score <= patternThreshold {
			continue
		}
		out = append(out, Candidate{
			Idea:   idea,
			Score:  score,
			Reason: fmt.Sprintf("Matches successful patterns (%.0f%%)", score),
		})
	}
	return out
}

// PatternScore rates one idea against patterns.
func PatternScore(idea *entities.Idea, patterns Patterns, now time.Time) float64 {
	score := 50.0
	if n, ok := patterns.Categories[idea.Category]; ok && idea.Category != "" {
		score += math.Min(20, float64(n*2))
	}
	matches := 0
	for _, w := range strings.Fields(string(normalize(idea.Content()))) {
		if _, ok := patterns.Themes[w]; ok {
			matches++
		}
	}
	score += math.Min(15, float64(matches*3))
	if patterns.samples > 0 && math.Abs(float64(now.Hour())-patterns.AvgHour) < 3 {
		score += 10
	}
	return math.Min(100, score)
}

// BySerendipity gives every idea a random score in [40, 90] with boosts for
// very novel and metaphysical ideas.
func (p *ReviewPlanner) BySerendipity(ideas []*entities.Idea) []Candidate {
	out := make([]Candidate, 0, len(ideas))
	for _, idea := range ideas {
		score := float64(40 + p.intn(51))
		if idea.NoveltyScore > 80 {
			score += 10
		}
		if idea.Category == valueobjects.CategoryMetaphysical {
			score += 5
		}
		out = append(out, Candidate{Idea: idea, Score: score, Reason: "A serendipitous rediscovery"})
	}
	return out
}

func (p *ReviewPlanner) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.Intn(n)
}

// ByPriority ranks ideas backing high-priority proposals.
func (p *ReviewPlanner) ByPriority(ideas []*entities.Idea, proposals []*entities.Proposal) []Candidate {
	byID := make(map[string]*entities.Idea, len(ideas))
	for _, idea := range ideas {
		byID[idea.ID.String()] = idea
	}
	var out []Candidate
	for _, prop := range proposals {
		idea, ok := byID[prop.IdeaID.String()]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Idea:   idea,
			Score:  prop.PriorityScore,
			Reason: fmt.Sprintf("High-priority proposal (%.0f%% priority)", prop.PriorityScore),
		})
	}
	return out
}

// Top sorts candidates by score, highest first, and keeps at most max.
func Top(candidates []Candidate, max int) []Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if max >= 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// NextReview returns when a review of the given type should run again.
func NextReview(reviewType string, from time.Time) time.Time {
	switch reviewType {
	case "weekly":
		return from.AddDate(0, 0, 7)
	case "monthly":
		return from.AddDate(0, 0, 30)
	case "quarterly":
		return from.AddDate(0, 0, 90)
	default:
		return from.AddDate(0, 0, 1)
	}
}

func season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}
