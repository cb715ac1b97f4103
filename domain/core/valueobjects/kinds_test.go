package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUrgencyHint(t *testing.T) {
	assert.Equal(t, UrgencyHigh, ParseUrgencyHint(" HIGH "))
	assert.Equal(t, UrgencyEmergency, ParseUrgencyHint("emergency"))
	assert.Equal(t, UrgencyNormal, ParseUrgencyHint(""))
	assert.Equal(t, UrgencyNormal, ParseUrgencyHint("whenever"))
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("Metaphysical")
	assert.True(t, ok)
	assert.Equal(t, CategoryMetaphysical, c)

	_, ok = ParseCategory("sports")
	assert.False(t, ok)
}

func TestProposalStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ProposalStatus
		allowed  bool
	}{
		{ProposalPending, ProposalApproved, true},
		{ProposalLowViability, ProposalRejected, true},
		{ProposalApproved, ProposalInProgress, true},
		{ProposalInProgress, ProposalCompleted, true},
		{ProposalApproved, ProposalRejected, false},
		{ProposalRejected, ProposalApproved, false},
		{ProposalCompleted, ProposalPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIdeaIDJSON(t *testing.T) {
	id := NewIdeaID()

	data, err := json.Marshal(struct {
		ID IdeaID `json:"id"`
	}{id})
	require.NoError(t, err)

	var decoded struct {
		ID IdeaID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, id.Equals(decoded.ID))

	_, err = ParseIdeaID("not-a-uuid")
	assert.Error(t, err)
}
