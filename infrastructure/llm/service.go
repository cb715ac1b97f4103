package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Prompt markers. The mock provider keys its canned answers on these.
const (
	markerClassify    = "Classify this idea"
	markerExpand      = "Expand on this idea"
	markerSpecialized = "As a specialist in"
	markerVisual      = "Write an image generation prompt"
	markerViability   = "Assess the viability"
)

// Service provides LLM-powered analysis of ideas
type Service struct {
	provider Provider
}

var _ ports.IdeaIntelligence = (*Service)(nil)

// NewService creates a new LLM service with the specified provider. A nil
// provider yields a service that is never available.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// Available returns true if the LLM service is available
func (s *Service) Available() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// Model names the provider that will serve the next call.
func (s *Service) Model() string {
	if s.provider == nil {
		return ""
	}
	if fp, ok := s.provider.(*FallbackProvider); ok {
		return fp.Active()
	}
	return s.provider.Name()
}

type classifyResponse struct {
	Category string   `json:"category"`
	Urgency  float64  `json:"urgency_score"`
	Novelty  float64  `json:"novelty_score"`
	Tags     []string `json:"tags"`
}

// ClassifyIdea asks the model for a category, scores and tags.
func (s *Service) ClassifyIdea(ctx context.Context, content string) (entities.Classification, error) {
	prompt := fmt.Sprintf(`%s into exactly one category: creative, business, personal, metaphysical or utility.
Score its urgency and novelty from 0 to 100 and suggest up to five short lowercase tags.

Idea: %q

Respond with JSON only:
{"category": "...", "urgency_score": 0, "novelty_score": 0, "tags": ["..."]}`, markerClassify, content)

	var resp classifyResponse
	if err := s.completeJSON(ctx, prompt, CompletionOptions{Temperature: 0.3, MaxTokens: 300, Format: "json"}, &resp); err != nil {
		return entities.Classification{}, err
	}

	category, ok := valueobjects.ParseCategory(resp.Category)
	if !ok {
		category = ""
	}
	return entities.Classification{
		Category:   category,
		Urgency:    entities.ClampScore(resp.Urgency),
		Novelty:    entities.ClampScore(resp.Novelty),
		Tags:       entities.NormalizeTags(resp.Tags),
		AIAssisted: true,
	}, nil
}

// ExpandIdea writes a general expansion of the idea.
func (s *Service) ExpandIdea(ctx context.Context, content, category string) (string, error) {
	prompt := fmt.Sprintf(`%s with creative possibilities and practical applications.

Idea: %q
Category: %s

Cover different interpretations, key features, target audience, technical
considerations and creative enhancements. Match the energy of the original idea.`, markerExpand, content, category)

	return s.completeText(ctx, prompt, CompletionOptions{Temperature: 0.8, MaxTokens: 800})
}

var specialists = map[string]string{
	string(valueobjects.CategoryCreative):     "creative direction and storytelling",
	string(valueobjects.CategoryBusiness):     "startup strategy and market analysis",
	string(valueobjects.CategoryPersonal):     "habit design and personal growth",
	string(valueobjects.CategoryMetaphysical): "symbolism and contemplative practice",
	string(valueobjects.CategoryUtility):      "software tooling and automation",
}

// SpecializedExpansion writes an expansion from the point of view of a
// specialist for the idea's category.
func (s *Service) SpecializedExpansion(ctx context.Context, content, category string) (string, error) {
	field, ok := specialists[category]
	if !ok {
		field = specialists[string(valueobjects.CategoryUtility)]
	}
	prompt := fmt.Sprintf(`%s %s, develop this idea into concrete next steps.

Idea: %q

List the three most important questions to answer and a first small experiment.`, markerSpecialized, field, content)

	return s.completeText(ctx, prompt, CompletionOptions{Temperature: 0.7, MaxTokens: 600})
}

// VisualPrompt writes a Stable Diffusion style prompt for the idea.
func (s *Service) VisualPrompt(ctx context.Context, content, style string) (string, error) {
	prompt := fmt.Sprintf(`%s that captures this idea visually.

Idea: %q
Style: %s

Reply with the prompt text only.`, markerVisual, content, style)

	return s.completeText(ctx, prompt, CompletionOptions{Temperature: 0.8, MaxTokens: 300})
}

// AssessViability asks for a proposal draft and viability scores.
func (s *Service) AssessViability(ctx context.Context, content, category string, expansions []string) (*ports.Viability, error) {
	var background string
	if len(expansions) > 0 {
		background = "\nExpansions:\n" + strings.Join(expansions, "\n---\n")
	}
	prompt := fmt.Sprintf(`%s of this idea as a project.

Idea: %q
Category: %s%s

Score feasibility, market_potential, resource_requirements, innovation and
alignment from 0 to 100, then an overall_score and a priority_score.
Respond with JSON only:
{"title": "...", "description": "...", "problem_statement": "...", "solution_approach": "...",
 "implementation_plan": "...", "tasks": ["..."], "criteria": {"feasibility": 0},
 "overall_score": 0, "priority_score": 0}`, markerViability, content, category, background)

	var v ports.Viability
	if err := s.completeJSON(ctx, prompt, CompletionOptions{Temperature: 0.4, MaxTokens: 1200, Format: "json"}, &v); err != nil {
		return nil, err
	}
	v.OverallScore = entities.ClampScore(v.OverallScore)
	v.PriorityScore = entities.ClampScore(v.PriorityScore)
	return &v, nil
}

func (s *Service) completeText(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if !s.Available() {
		return "", pkgerrors.NewUnavailable("llm")
	}
	out, err := s.provider.Complete(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", pkgerrors.NewExternal(s.Model(), fmt.Errorf("empty completion"))
	}
	return out, nil
}

func (s *Service) completeJSON(ctx context.Context, prompt string, opts CompletionOptions, v interface{}) error {
	out, err := s.completeText(ctx, prompt, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(out)), v); err != nil {
		return pkgerrors.NewExternal(s.Model(), fmt.Errorf("failed to parse LLM response: %w", err))
	}
	return nil
}

// ExtractJSON strips markdown code fences and any prose around the first
// JSON object in s.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
