package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	t.Run("Should keep short content", func(t *testing.T) {
		assert.Equal(t, "short idea", Preview("short idea"))
	})

	t.Run("Should truncate long content with an ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 150)
		got := Preview(long)
		assert.Equal(t, PreviewLength+3, len(got))
		assert.True(t, strings.HasSuffix(got, "..."))
	})

	t.Run("Should count runes rather than bytes", func(t *testing.T) {
		long := strings.Repeat("é", 101)
		assert.Equal(t, strings.Repeat("é", 100)+"...", Preview(long))
	})
}

func TestEventsCarryBaseFields(t *testing.T) {
	e := NewIdeaCaptured("idea-1", "user-1", "text", "build a thing", 75, []string{"app"})

	var de DomainEvent = e
	assert.Equal(t, TypeIdeaCaptured, de.GetEventType())
	assert.Equal(t, "idea-1", de.GetAggregateID())
	assert.Equal(t, "user-1", de.GetUserID())
	assert.False(t, de.GetTimestamp().IsZero())

	alert := NewSystemAlert("warning", "LLM provider unavailable")
	assert.Empty(t, alert.GetUserID())
}
