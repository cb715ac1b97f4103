package services

import "dreamcatcher/domain/core/valueobjects"

// Rules holds the keyword lists and factors used by the scoring heuristics.
// The zero value is not usable; start from DefaultRules.
type Rules struct {
	UrgencyMultipliers map[string]float64 `yaml:"urgency_multipliers"`
	CaptureBase        float64            `yaml:"capture_base"`
	UrgentKeywords     []string           `yaml:"urgent_keywords"`
	UrgentFactor       float64            `yaml:"urgent_factor"`
	ExcitementKeywords []string           `yaml:"excitement_keywords"`
	ExcitementFactor   float64            `yaml:"excitement_factor"`

	AutoTags map[string][]string `yaml:"auto_tags"`

	CategoryKeywords      map[string][]string `yaml:"category_keywords"`
	HighUrgencyKeywords   []string            `yaml:"high_urgency_keywords"`
	MediumUrgencyKeywords []string            `yaml:"medium_urgency_keywords"`
	ClassifierExcitement  []string            `yaml:"classifier_excitement_keywords"`
	NoveltyKeywords       []string            `yaml:"novelty_keywords"`
	SpiritualKeywords     []string            `yaml:"spiritual_keywords"`

	DreamUrgency     float64 `yaml:"dream_urgency"`
	ExpandUrgency    float64 `yaml:"expand_urgency"`
	ExpandNovelty    float64 `yaml:"expand_novelty"`
	UrgentTagAbove   float64 `yaml:"urgent_tag_above"`
	PriorityTagAbove float64 `yaml:"priority_tag_above"`
}

// DefaultRules returns the built-in scoring rules.
func DefaultRules() Rules {
	return Rules{
		UrgencyMultipliers: map[string]float64{
			string(valueobjects.UrgencyLow):       0.5,
			string(valueobjects.UrgencyNormal):    1.0,
			string(valueobjects.UrgencyHigh):      1.5,
			string(valueobjects.UrgencyUrgent):    2.0,
			string(valueobjects.UrgencyEmergency): 3.0,
		},
		CaptureBase:        50,
		UrgentKeywords:     []string{"urgent", "asap", "immediately", "emergency", "critical", "important"},
		UrgentFactor:       1.3,
		ExcitementKeywords: []string{"amazing", "brilliant", "genius", "perfect", "incredible", "holy shit"},
		ExcitementFactor:   1.2,

		AutoTags: map[string][]string{
			"app":       {"app", "application", "mobile", "software"},
			"business":  {"business", "startup", "money", "revenue", "product"},
			"creative":  {"art", "design", "creative", "story", "music"},
			"tech":      {"ai", "tech", "code", "programming", "algorithm"},
			"spiritual": {"spiritual", "meditation", "consciousness", "awakening"},
			"dream":     {"dream", "sleep", "lucid", "nightmare"},
			"urgent":    {"urgent", "asap", "important", "critical"},
		},

		CategoryKeywords: map[string][]string{
			string(valueobjects.CategoryCreative):     {"art", "design", "story", "music", "creative", "visual"},
			string(valueobjects.CategoryBusiness):     {"business", "startup", "money", "revenue", "product", "market"},
			string(valueobjects.CategoryPersonal):     {"personal", "habit", "routine", "self", "improvement"},
			string(valueobjects.CategoryMetaphysical): {"spiritual", "consciousness", "awakening", "meditation", "energy"},
			string(valueobjects.CategoryUtility):      {"app", "tool", "utility", "helper", "automation", "system"},
		},
		HighUrgencyKeywords:   []string{"urgent", "asap", "critical", "important", "emergency"},
		MediumUrgencyKeywords: []string{"soon", "needed", "should", "priority"},
		ClassifierExcitement:  []string{"amazing", "brilliant", "genius", "perfect", "incredible", "holy shit", "this is it"},
		NoveltyKeywords:       []string{"new", "innovative", "never", "first", "unique", "original"},
		SpiritualKeywords:     []string{"spirit", "vision", "prophecy", "symbol", "message"},

		DreamUrgency:     30,
		ExpandUrgency:    60,
		ExpandNovelty:    70,
		UrgentTagAbove:   80,
		PriorityTagAbove: 65,
	}
}

// Merge overlays the non-empty fields of o onto r.
func (r Rules) Merge(o Rules) Rules {
	if len(o.UrgencyMultipliers) > 0 {
		r.UrgencyMultipliers = o.UrgencyMultipliers
	}
	if o.CaptureBase > 0 {
		r.CaptureBase = o.CaptureBase
	}
	if len(o.UrgentKeywords) > 0 {
		r.UrgentKeywords = o.UrgentKeywords
	}
	if o.UrgentFactor > 0 {
		r.UrgentFactor = o.UrgentFactor
	}
	if len(o.ExcitementKeywords) > 0 {
		r.ExcitementKeywords = o.ExcitementKeywords
	}
	if o.ExcitementFactor > 0 {
		r.ExcitementFactor = o.ExcitementFactor
	}
	if len(o.AutoTags) > 0 {
		r.AutoTags = o.AutoTags
	}
	if len(o.CategoryKeywords) > 0 {
		r.CategoryKeywords = o.CategoryKeywords
	}
	if len(o.HighUrgencyKeywords) > 0 {
		r.HighUrgencyKeywords = o.HighUrgencyKeywords
	}
	if len(o.MediumUrgencyKeywords) > 0 {
		r.MediumUrgencyKeywords = o.MediumUrgencyKeywords
	}
	if len(o.ClassifierExcitement) > 0 {
		r.ClassifierExcitement = o.ClassifierExcitement
	}
	if len(o.NoveltyKeywords) > 0 {
		r.NoveltyKeywords = o.NoveltyKeywords
	}
	if len(o.SpiritualKeywords) > 0 {
		r.SpiritualKeywords = o.SpiritualKeywords
	}
	if o.DreamUrgency > 0 {
		r.DreamUrgency = o.DreamUrgency
	}
	if o.ExpandUrgency > 0 {
		r.ExpandUrgency = o.ExpandUrgency
	}
	if o.ExpandNovelty > 0 {
		r.ExpandNovelty = o.ExpandNovelty
	}
	if o.UrgentTagAbove > 0 {
		r.UrgentTagAbove = o.UrgentTagAbove
	}
	if o.PriorityTagAbove > 0 {
		r.PriorityTagAbove = o.PriorityTagAbove
	}
	return r
}
