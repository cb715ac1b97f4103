package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dreamcatcher/domain/services"
)

// DynamicConfig holds tunables that can change while the service runs.
type DynamicConfig struct {
	Scoring  services.Rules `yaml:"scoring"`
	Review   ReviewTuning   `yaml:"review"`
	Search   SearchTuning   `yaml:"search"`
	Metadata ConfigMetadata `yaml:"metadata"`
}

// ReviewTuning controls which ideas the scheduler resurfaces.
type ReviewTuning struct {
	StaleAfterDays   int     `yaml:"stale_after_days"`
	StaleMinUrgency  float64 `yaml:"stale_min_urgency"`
	StaleBatch       int     `yaml:"stale_batch"`
	PriorityMinScore float64 `yaml:"priority_min_score"`
}

// SearchTuning holds the semantic search defaults.
type SearchTuning struct {
	Limit            int     `yaml:"limit"`
	Threshold        float64 `yaml:"threshold"`
	RelatedLimit     int     `yaml:"related_limit"`
	RelatedThreshold float64 `yaml:"related_threshold"`
}

// ConfigMetadata holds metadata about the configuration
type ConfigMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// DefaultDynamicConfig returns the built-in tunables.
func DefaultDynamicConfig() *DynamicConfig {
	return &DynamicConfig{
		Scoring: services.DefaultRules(),
		Review: ReviewTuning{
			StaleAfterDays:   7,
			StaleMinUrgency:  50,
			StaleBatch:       10,
			PriorityMinScore: 80,
		},
		Search: SearchTuning{
			Limit:            10,
			Threshold:        0.5,
			RelatedLimit:     5,
			RelatedThreshold: 0.6,
		},
		Metadata: ConfigMetadata{Version: "1.0.0"},
	}
}

// Validate rejects tunables the services cannot work with.
func (c *DynamicConfig) Validate() error {
	if c.Review.StaleAfterDays <= 0 {
		return fmt.Errorf("review.stale_after_days must be positive")
	}
	if c.Review.StaleBatch <= 0 || c.Review.StaleBatch > 100 {
		return fmt.Errorf("review.stale_batch must be between 1 and 100")
	}
	if c.Search.Limit <= 0 || c.Search.RelatedLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	for name, v := range map[string]float64{
		"search.threshold":         c.Search.Threshold,
		"search.related_threshold": c.Search.RelatedThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	for hint, m := range c.Scoring.UrgencyMultipliers {
		if m <= 0 {
			return fmt.Errorf("urgency multiplier for %q must be positive", hint)
		}
	}
	return nil
}

// LoadDynamicConfig reads path and overlays it on the defaults. An empty
// path yields the defaults.
func LoadDynamicConfig(path string) (*DynamicConfig, error) {
	if path == "" {
		return DefaultDynamicConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseDynamicConfig(data)
}

func parseDynamicConfig(data []byte) (*DynamicConfig, error) {
	var file DynamicConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg := DefaultDynamicConfig()
	cfg.Scoring = cfg.Scoring.Merge(file.Scoring)
	if file.Review.StaleAfterDays != 0 {
		cfg.Review.StaleAfterDays = file.Review.StaleAfterDays
	}
	if file.Review.StaleMinUrgency != 0 {
		cfg.Review.StaleMinUrgency = file.Review.StaleMinUrgency
	}
	if file.Review.StaleBatch != 0 {
		cfg.Review.StaleBatch = file.Review.StaleBatch
	}
	if file.Review.PriorityMinScore != 0 {
		cfg.Review.PriorityMinScore = file.Review.PriorityMinScore
	}
	if file.Search.Limit != 0 {
		cfg.Search.Limit = file.Search.Limit
	}
	if file.Search.Threshold != 0 {
		cfg.Search.Threshold = file.Search.Threshold
	}
	if file.Search.RelatedLimit != 0 {
		cfg.Search.RelatedLimit = file.Search.RelatedLimit
	}
	if file.Search.RelatedThreshold != 0 {
		cfg.Search.RelatedThreshold = file.Search.RelatedThreshold
	}
	if file.Metadata.Version != "" {
		cfg.Metadata.Version = file.Metadata.Version
	}
	cfg.Metadata.UpdatedAt = time.Now()

	return cfg, nil
}
