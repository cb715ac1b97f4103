package entities

import (
	"time"

	"github.com/google/uuid"
)

// AgentLogStatus is the outcome of one agent action.
type AgentLogStatus string

const (
	AgentLogStarted   AgentLogStatus = "started"
	AgentLogCompleted AgentLogStatus = "completed"
	AgentLogFailed    AgentLogStatus = "failed"
)

// AgentStats is a snapshot of an agent's counters.
type AgentStats struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Version        string    `json:"version"`
	Active         bool      `json:"is_active"`
	TotalProcessed int64     `json:"total_processed"`
	Succeeded      int64     `json:"succeeded"`
	Failed         int64     `json:"failed"`
	QueueDepth     int       `json:"queue_depth"`
	AvgDurationMS  float64   `json:"avg_processing_time_ms"`
	LastActive     time.Time `json:"last_active,omitempty"`
}

// SuccessRate returns succeeded / processed as a percentage.
func (s AgentStats) SuccessRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalProcessed) * 100
}

// AgentLog records one agent action for auditing and performance analysis.
type AgentLog struct {
	ID          string                 `json:"id"`
	AgentID     string                 `json:"agent_id"`
	IdeaID      string                 `json:"idea_id,omitempty"`
	Action      string                 `json:"action"`
	Status      AgentLogStatus         `json:"status"`
	Input       map[string]interface{} `json:"input_data,omitempty"`
	Output      map[string]interface{} `json:"output_data,omitempty"`
	Error       string                 `json:"error_message,omitempty"`
	Duration    time.Duration          `json:"duration"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at,omitempty"`
}

// NewAgentLog starts a log entry.
func NewAgentLog(agentID, ideaID, action string, input map[string]interface{}) *AgentLog {
	return &AgentLog{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		IdeaID:    ideaID,
		Action:    action,
		Status:    AgentLogStarted,
		Input:     input,
		StartedAt: time.Now().UTC(),
	}
}

// Finish closes the entry as completed or failed depending on err.
func (l *AgentLog) Finish(output map[string]interface{}, err error) {
	l.CompletedAt = time.Now().UTC()
	l.Duration = l.CompletedAt.Sub(l.StartedAt)
	l.Output = output
	if err != nil {
		l.Status = AgentLogFailed
		l.Error = err.Error()
		return
	}
	l.Status = AgentLogCompleted
}
