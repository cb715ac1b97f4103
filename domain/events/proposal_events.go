package events

// ProposalGenerated is raised when the proposer stores a proposal.
type ProposalGenerated struct {
	BaseEvent
	IdeaID         string  `json:"idea_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	ViabilityScore float64 `json:"viability_score"`
	PriorityScore  float64 `json:"priority_score"`
}

// NewProposalGenerated creates a ProposalGenerated event
func NewProposalGenerated(proposalID, ideaID, userID, title, status string, viability, priority float64) ProposalGenerated {
	return ProposalGenerated{
		BaseEvent:      newBase(TypeProposalGenerated, proposalID, userID),
		IdeaID:         ideaID,
		Title:          title,
		Status:         status,
		ViabilityScore: viability,
		PriorityScore:  priority,
	}
}

// ProposalDecided is raised when a proposal is approved or rejected.
type ProposalDecided struct {
	BaseEvent
	IdeaID string `json:"idea_id"`
	Title  string `json:"title"`
	Notes  string `json:"notes,omitempty"`
}

// NewProposalApproved creates a proposal.approved event
func NewProposalApproved(proposalID, ideaID, userID, title, notes string) ProposalDecided {
	return ProposalDecided{BaseEvent: newBase(TypeProposalApproved, proposalID, userID), IdeaID: ideaID, Title: title, Notes: notes}
}

// NewProposalRejected creates a proposal.rejected event
func NewProposalRejected(proposalID, ideaID, userID, title, notes string) ProposalDecided {
	return ProposalDecided{BaseEvent: newBase(TypeProposalRejected, proposalID, userID), IdeaID: ideaID, Title: title, Notes: notes}
}
