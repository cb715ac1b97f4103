package valueobjects

import "strings"

// SourceType is how an idea entered the system.
type SourceType string

const (
	SourceVoice SourceType = "voice"
	SourceText  SourceType = "text"
	SourceDream SourceType = "dream"
	SourceImage SourceType = "image"
)

// IsValid reports whether s is a known source type.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceVoice, SourceText, SourceDream, SourceImage:
		return true
	}
	return false
}

// Category is the classification bucket of an idea.
type Category string

const (
	CategoryCreative     Category = "creative"
	CategoryBusiness     Category = "business"
	CategoryPersonal     Category = "personal"
	CategoryMetaphysical Category = "metaphysical"
	CategoryUtility      Category = "utility"
)

// Categories lists every category in a stable order.
var Categories = []Category{
	CategoryCreative,
	CategoryBusiness,
	CategoryPersonal,
	CategoryMetaphysical,
	CategoryUtility,
}

// ParseCategory normalises s. ok is false for unknown categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	parsed, ok := ParseCategory(string(c))
	return ok && parsed == c
}

// ProcessingStatus tracks an idea through the agent pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// UrgencyHint is the caller-supplied urgency of a capture.
type UrgencyHint string

const (
	UrgencyLow       UrgencyHint = "low"
	UrgencyNormal    UrgencyHint = "normal"
	UrgencyHigh      UrgencyHint = "high"
	UrgencyUrgent    UrgencyHint = "urgent"
	UrgencyEmergency UrgencyHint = "emergency"
)

// ParseUrgencyHint maps s onto a hint. Unknown or empty values are normal.
func ParseUrgencyHint(s string) UrgencyHint {
	switch h := UrgencyHint(strings.ToLower(strings.TrimSpace(s))); h {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent, UrgencyEmergency:
		return h
	}
	return UrgencyNormal
}

// ProposalStatus is the review state of a proposal.
type ProposalStatus string

const (
	ProposalPending      ProposalStatus = "pending"
	ProposalLowViability ProposalStatus = "low_viability"
	ProposalApproved     ProposalStatus = "approved"
	ProposalRejected     ProposalStatus = "rejected"
	ProposalInProgress   ProposalStatus = "in_progress"
	ProposalCompleted    ProposalStatus = "completed"
)

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalPending:      {ProposalApproved, ProposalRejected},
	ProposalLowViability: {ProposalApproved, ProposalRejected},
	ProposalApproved:     {ProposalInProgress},
	ProposalInProgress:   {ProposalCompleted},
}

// CanTransitionTo reports whether a proposal may move from s to next.
func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	for _, allowed := range proposalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known proposal status.
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalPending, ProposalLowViability, ProposalApproved,
		ProposalRejected, ProposalInProgress, ProposalCompleted:
		return true
	}
	return false
}

// ExpansionType identifies which model family or template produced an expansion.
type ExpansionType string

const (
	ExpansionClaude      ExpansionType = "claude"
	ExpansionGPT         ExpansionType = "gpt"
	ExpansionSpecialized ExpansionType = "specialized"
)
