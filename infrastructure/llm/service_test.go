package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Sure! Here it is: {\"a\":1} Hope this helps.", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestService_ClassifyIdea(t *testing.T) {
	svc := NewService(NewMockProvider())

	c, err := svc.ClassifyIdea(context.Background(), "an urgent startup to sell coffee")
	require.NoError(t, err)

	assert.Equal(t, valueobjects.CategoryBusiness, c.Category)
	assert.Equal(t, 90.0, c.Urgency)
	assert.True(t, c.AIAssisted)
	assert.Contains(t, c.Tags, "ai-reviewed")
}

func TestService_AssessViability(t *testing.T) {
	svc := NewService(NewMockProvider())

	v, err := svc.AssessViability(context.Background(), "a garden robot", "utility", []string{"expansion"})
	require.NoError(t, err)

	assert.Equal(t, 72.0, v.OverallScore)
	assert.Equal(t, 70.0, v.PriorityScore)
	assert.Len(t, v.Tasks, 3)
}

func TestService_Unavailable(t *testing.T) {
	t.Run("Should report unavailable without a provider", func(t *testing.T) {
		svc := NewService(nil)
		assert.False(t, svc.Available())

		_, err := svc.ExpandIdea(context.Background(), "x", "utility")
		assert.True(t, pkgerrors.IsUnavailable(err))
	})

	t.Run("Should surface provider errors", func(t *testing.T) {
		mock := NewMockProvider()
		mock.FailWith(errors.New("boom"))
		svc := NewService(mock)

		_, err := svc.VisualPrompt(context.Background(), "x", "modern")
		assert.Error(t, err)
	})
}

func TestFallbackProvider(t *testing.T) {
	primary := NewMockProvider()
	secondary := NewMockProvider()
	fp := NewFallbackProvider(zap.NewNop(), primary, nil, secondary)

	t.Run("Should use the first provider when healthy", func(t *testing.T) {
		_, err := fp.Complete(context.Background(), markerExpand, CompletionOptions{})
		require.NoError(t, err)
		assert.Len(t, primary.Calls(), 1)
		assert.Empty(t, secondary.Calls())
	})

	t.Run("Should fall through on failure", func(t *testing.T) {
		primary.FailWith(errors.New("down"))
		_, err := fp.Complete(context.Background(), markerExpand, CompletionOptions{})
		require.NoError(t, err)
		assert.Len(t, secondary.Calls(), 1)
	})

	t.Run("Should report unavailable when nothing is available", func(t *testing.T) {
		primary.SetAvailable(false)
		secondary.SetAvailable(false)
		assert.False(t, fp.IsAvailable())

		_, err := fp.Complete(context.Background(), markerExpand, CompletionOptions{})
		assert.True(t, pkgerrors.IsUnavailable(err))
	})
}

func TestGuardedProvider_OpensCircuit(t *testing.T) {
	mock := NewMockProvider()
	mock.FailWith(errors.New("upstream 500"))

	cfg := DefaultGuardConfig()
	cfg.RequestsPerSec = 0
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	g := NewGuardedProvider(mock, cfg, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), markerExpand, CompletionOptions{})
		require.Error(t, err)
	}

	assert.False(t, g.IsAvailable())
	_, err := g.Complete(context.Background(), markerExpand, CompletionOptions{})
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeCircuitOpen, appErr.Code)
	assert.Len(t, mock.Calls(), 2)
}
