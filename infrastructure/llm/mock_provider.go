package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MockProvider answers prompts with canned responses for tests and offline
// development.
type MockProvider struct {
	mu        sync.Mutex
	available bool
	err       error
	calls     []string
}

// NewMockProvider creates a new mock LLM provider
func NewMockProvider() *MockProvider {
	return &MockProvider{available: true}
}

func (m *MockProvider) Name() string { return "mock" }

// IsAvailable returns whether the mock provider is available
func (m *MockProvider) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable toggles availability.
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// FailWith makes every Complete call return err. Pass nil to recover.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the prompts received so far.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Complete provides mock completions based on simple pattern matching
func (m *MockProvider) Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	available, err := m.available, m.err
	m.mu.Unlock()

	if !available {
		return "", fmt.Errorf("mock provider is not available")
	}
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case strings.Contains(prompt, markerClassify):
		return m.mockClassification(prompt)
	case strings.Contains(prompt, markerViability):
		return m.mockViability(prompt)
	case strings.Contains(prompt, markerSpecialized):
		return "Questions: who needs this, what exists already, what is the smallest test?\nExperiment: build a one-day prototype.", nil
	case strings.Contains(prompt, markerExpand):
		return "This idea could become a product, a community or a personal practice.", nil
	case strings.Contains(prompt, markerVisual):
		return "luminous concept art, soft volumetric light, highly detailed", nil
	}
	return "", fmt.Errorf("unsupported prompt type")
}

func (m *MockProvider) mockClassification(prompt string) (string, error) {
	lower := strings.ToLower(prompt[strings.Index(prompt, "Idea:"):])
	resp := classifyResponse{Category: "utility", Urgency: 55, Novelty: 60, Tags: []string{"ai-reviewed"}}
	switch {
	case strings.Contains(lower, "startup") || strings.Contains(lower, "business"):
		resp.Category = "business"
	case strings.Contains(lower, "art") || strings.Contains(lower, "music") || strings.Contains(lower, "story"):
		resp.Category = "creative"
	case strings.Contains(lower, "meditation") || strings.Contains(lower, "spiritual"):
		resp.Category = "metaphysical"
	}
	if strings.Contains(lower, "urgent") {
		resp.Urgency = 90
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return "```json\n" + string(data) + "\n```", nil
}

func (m *MockProvider) mockViability(prompt string) (string, error) {
	score := 72.0
	if strings.Contains(strings.ToLower(prompt), "impossible") {
		score = 35
	}
	data, err := json.Marshal(map[string]interface{}{
		"title":               "Project proposal",
		"description":         "A structured plan for the idea.",
		"problem_statement":   "People lack a simple way to do this.",
		"solution_approach":   "Start small and iterate.",
		"implementation_plan": "Research, prototype, test, launch.",
		"tasks":               []string{"Research", "Prototype", "User testing"},
		"criteria":            map[string]float64{"feasibility": score, "innovation": 70},
		"overall_score":       score,
		"priority_score":      score - 2,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
