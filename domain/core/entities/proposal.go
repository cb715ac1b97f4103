package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Viability thresholds applied when a proposal is generated.
const (
	LowViabilityThreshold   = 60.0
	PriorityReviewThreshold = 80.0
)

// Proposal is a project suggestion derived from an idea.
type Proposal struct {
	ID                 string                      `json:"id"`
	IdeaID             valueobjects.IdeaID         `json:"idea_id"`
	UserID             string                      `json:"user_id"`
	Title              string                      `json:"title"`
	Description        string                      `json:"description"`
	ProblemStatement   string                      `json:"problem_statement,omitempty"`
	SolutionApproach   string                      `json:"solution_approach,omitempty"`
	ImplementationPlan string                      `json:"implementation_plan,omitempty"`
	ViabilityScore     float64                     `json:"viability_score"`
	PriorityScore      float64                     `json:"priority_score"`
	Analysis           map[string]float64          `json:"analysis,omitempty"`
	Status             valueobjects.ProposalStatus `json:"status"`
	ApprovalNotes      string                      `json:"approval_notes,omitempty"`
	GeneratedBy        string                      `json:"generated_by"`
	Tasks              []ProposalTask              `json:"tasks,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`

	events []events.DomainEvent
}

// ProposalTask is one step of a proposal's implementation plan.
type ProposalTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Order       int    `json:"order"`
}

// ProposalDraft is what the proposer hands over to create a proposal.
type ProposalDraft struct {
	Title              string
	Description        string
	ProblemStatement   string
	SolutionApproach   string
	ImplementationPlan string
	Viability          float64
	Priority           float64
	Analysis           map[string]float64
	Tasks              []string
	GeneratedBy        string
}

// NewProposal builds a proposal for idea. Proposals under the low viability
// threshold start as low_viability, everything else as pending.
func NewProposal(idea *Idea, d ProposalDraft) (*Proposal, error) {
	if idea == nil {
		return nil, pkgerrors.NewValidation("proposal requires an idea")
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, pkgerrors.NewValidation("proposal title cannot be empty")
	}

	status := valueobjects.ProposalPending
	if ClampScore(d.Viability) < LowViabilityThreshold {
		status = valueobjects.ProposalLowViability
	}

	now := time.Now().UTC()
	p := &Proposal{
		ID:                 uuid.New().String(),
		IdeaID:             idea.ID,
		UserID:             idea.UserID,
		Title:              title,
		Description:        d.Description,
		ProblemStatement:   d.ProblemStatement,
		SolutionApproach:   d.SolutionApproach,
		ImplementationPlan: d.ImplementationPlan,
		ViabilityScore:     ClampScore(d.Viability),
		PriorityScore:      ClampScore(d.Priority),
		Analysis:           d.Analysis,
		Status:             status,
		GeneratedBy:        d.GeneratedBy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i, t := range d.Tasks {
		if strings.TrimSpace(t) == "" {
			continue
		}
		p.Tasks = append(p.Tasks, ProposalTask{
			ID:     uuid.New().String(),
			Title:  strings.TrimSpace(t),
			Status: "todo",
			Order:  i + 1,
		})
	}

	p.addEvent(events.NewProposalGenerated(p.ID, idea.ID.String(), p.UserID, p.Title, string(p.Status), p.ViabilityScore, p.PriorityScore))
	return p, nil
}

// NeedsPriorityReview reports whether the proposal is strong enough to be
// surfaced immediately.
func (p *Proposal) NeedsPriorityReview() bool {
	return p.ViabilityScore >= PriorityReviewThreshold
}

// Approve moves the proposal to approved.
func (p *Proposal) Approve(notes string) error {
	if err := p.transition(valueobjects.ProposalApproved); err != nil {
		return err
	}
	p.ApprovalNotes = notes
	p.addEvent(events.NewProposalApproved(p.ID, p.IdeaID.String(), p.UserID, p.Title, notes))
	return nil
}

// Reject moves the proposal to rejected.
func (p *Proposal) Reject(notes string) error {
	if err := p.transition(valueobjects.ProposalRejected); err != nil {
		return err
	}
	p.ApprovalNotes = notes
	p.addEvent(events.NewProposalRejected(p.ID, p.IdeaID.String(), p.UserID, p.Title, notes))
	return nil
}

// Start marks an approved proposal as in progress.
func (p *Proposal) Start() error {
	return p.transition(valueobjects.ProposalInProgress)
}

// Complete marks an in-progress proposal as completed.
func (p *Proposal) Complete() error {
	return p.transition(valueobjects.ProposalCompleted)
}

func (p *Proposal) transition(next valueobjects.ProposalStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return pkgerrors.NewConflict(fmt.Sprintf("proposal cannot move from %s to %s", p.Status, next)).
			WithCode(pkgerrors.CodeInvalidTransition)
	}
	p.Status = next
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// GetUncommittedEvents returns events raised since the last commit.
func (p *Proposal) GetUncommittedEvents() []events.DomainEvent {
	return p.events
}

// MarkEventsAsCommitted clears the pending events.
func (p *Proposal) MarkEventsAsCommitted() {
	p.events = nil
}

func (p *Proposal) addEvent(e events.DomainEvent) {
	p.events = append(p.events, e)
}
