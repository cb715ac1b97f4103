package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

func TestScorer_CaptureUrgency(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	tests := []struct {
		name    string
		content string
		hint    valueobjects.UrgencyHint
		want    float64
	}{
		{"normal baseline", "quick note", valueobjects.UrgencyNormal, 50},
		{"low hint halves", "quick note", valueobjects.UrgencyLow, 25},
		{"high hint", "quick note", valueobjects.UrgencyHigh, 75},
		{"keywords compound", "This is urgent and amazing", valueobjects.UrgencyNormal, 78},
		{"phrase keyword", "holy shit what an idea", valueobjects.UrgencyNormal, 60},
		{"capped at 100", "critical asap", valueobjects.UrgencyEmergency, 100},
		{"inflected keywords", "I urgently need this, it is importantly amazing", valueobjects.UrgencyNormal, 100},
		{"unknown hint is neutral", "quick note", "whenever", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scorer.CaptureUrgency(tt.content, tt.hint), 0.0001)
		})
	}
}

func TestScorer_AutoTags(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	t.Run("Should tag matching keyword groups", func(t *testing.T) {
		assert.Equal(t, []string{"app", "business"}, scorer.AutoTags("I want to build a mobile app for my startup"))
	})

	t.Run("Should match inflected words", func(t *testing.T) {
		assert.Equal(t, []string{"app", "business"}, scorer.AutoTags("Two startups building apps"))
	})

	t.Run("Should not match inside a word", func(t *testing.T) {
		assert.Empty(t, scorer.AutoTags("I was so happy, she said"))
	})
}

func TestScorer_Classify(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	t.Run("Should pick the category with most keyword hits", func(t *testing.T) {
		c := scorer.Classify("A new startup product for the market, urgent!")

		assert.Equal(t, valueobjects.CategoryBusiness, c.Category)
		assert.Equal(t, 70.0, c.Urgency)
		assert.Equal(t, 60.0, c.Novelty)
		assert.Equal(t, []string{"business", "high-priority"}, c.Tags)
	})

	t.Run("Should default to utility", func(t *testing.T) {
		c := scorer.Classify("hello world")

		assert.Equal(t, valueobjects.CategoryUtility, c.Category)
		assert.Equal(t, 50.0, c.Urgency)
		assert.Equal(t, 50.0, c.Novelty)
		assert.Empty(t, c.Tags)
	})

	t.Run("Should count plural keywords", func(t *testing.T) {
		c := scorer.Classify("Track my habits and routines with small apps")

		assert.Equal(t, valueobjects.CategoryPersonal, c.Category)
		assert.Equal(t, []string{"personal", "utility"}, c.Tags)
	})

	t.Run("Should tag very urgent ideas", func(t *testing.T) {
		c := scorer.Classify("urgent critical emergency")
		assert.Equal(t, 100.0, c.Urgency)
		assert.Contains(t, c.Tags, "urgent")
	})
}

func TestScorer_Merge(t *testing.T) {
	scorer := NewScorer(DefaultRules())
	rule := entities.Classification{Category: valueobjects.CategoryUtility, Urgency: 70, Novelty: 50, Tags: []string{"utility"}}
	ai := entities.Classification{Category: valueobjects.CategoryCreative, Urgency: 40, Novelty: 85, Tags: []string{"music", "utility"}}

	merged := scorer.Merge(rule, ai)

	assert.Equal(t, valueobjects.CategoryCreative, merged.Category)
	assert.Equal(t, 70.0, merged.Urgency)
	assert.Equal(t, 85.0, merged.Novelty)
	assert.Equal(t, []string{"music", "utility"}, merged.Tags)
	assert.True(t, merged.AIAssisted)
}

func TestScorer_ShouldExpand(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	assert.True(t, scorer.ShouldExpand(entities.Classification{Urgency: 61, Novelty: 50}))
	assert.True(t, scorer.ShouldExpand(entities.Classification{Urgency: 50, Novelty: 71}))
	assert.True(t, scorer.ShouldExpand(entities.Classification{Urgency: 10, Tags: []string{"urgent"}}))
	assert.False(t, scorer.ShouldExpand(entities.Classification{Urgency: 60, Novelty: 70}))
}

func TestScorer_DreamProfile(t *testing.T) {
	scorer := NewScorer(DefaultRules())

	c := scorer.DreamProfile("I saw a vision of a glowing symbol", "Lucid")
	assert.Equal(t, valueobjects.CategoryMetaphysical, c.Category)
	assert.Equal(t, 30.0, c.Urgency)
	assert.Equal(t, []string{"dream", "lucid", "metaphysical"}, c.Tags)

	c = scorer.DreamProfile("falling down stairs", "regular")
	assert.Equal(t, []string{"dream"}, c.Tags)
}

func TestRules_Merge(t *testing.T) {
	base := DefaultRules()
	merged := base.Merge(Rules{ExpandUrgency: 75, NoveltyKeywords: []string{"novel"}})

	assert.Equal(t, 75.0, merged.ExpandUrgency)
	assert.Equal(t, []string{"novel"}, merged.NoveltyKeywords)
	assert.Equal(t, base.ExpandNovelty, merged.ExpandNovelty)
	assert.Equal(t, base.UrgentKeywords, merged.UrgentKeywords)
}

func TestUrgencyBucket(t *testing.T) {
	assert.Equal(t, "low", UrgencyBucket(39.9))
	assert.Equal(t, "medium", UrgencyBucket(40))
	assert.Equal(t, "medium", UrgencyBucket(69.9))
	assert.Equal(t, "high", UrgencyBucket(70))
}
