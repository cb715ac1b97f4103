package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	pkgerrors "dreamcatcher/pkg/errors"
)

// SettingsService stores per-user application settings on top of typed
// defaults.
type SettingsService struct {
	repo   ports.SettingsRepository
	cache  ports.SettingsCache
	logger *zap.Logger
}

// NewSettingsService creates the service. cache may be nil.
func NewSettingsService(repo ports.SettingsRepository, cache ports.SettingsCache, logger *zap.Logger) *SettingsService {
	return &SettingsService{repo: repo, cache: cache, logger: logger}
}

// Get returns the user's settings merged over the defaults.
func (s *SettingsService) Get(ctx context.Context, userID string) (map[string]interface{}, error) {
	if s.cache != nil {
		if values, ok := s.cache.GetSettings(ctx, userID); ok {
			return merge(values), nil
		}
	}

	stored, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load settings")
	}
	values := merge(stored.Values)
	if s.cache != nil {
		s.cache.SetSettings(ctx, userID, values)
	}
	return values, nil
}

// Set validates and stores a single setting.
func (s *SettingsService) Set(ctx context.Context, userID, key string, value interface{}) (map[string]interface{}, error) {
	return s.Update(ctx, userID, map[string]interface{}{key: value})
}

// Update validates every value before storing any of them.
func (s *SettingsService) Update(ctx context.Context, userID string, values map[string]interface{}) (map[string]interface{}, error) {
	if len(values) == 0 {
		return nil, pkgerrors.NewValidation("no settings provided")
	}
	normalized := make(map[string]interface{}, len(values))
	for key, value := range values {
		def, ok := entities.LookupSetting(key)
		if !ok {
			return nil, pkgerrors.NewValidation("unknown setting: " + key).
				WithCode(pkgerrors.CodeUnknownSetting).
				WithDetail("key", key)
		}
		v, err := def.Normalize(value)
		if err != nil {
			return nil, err
		}
		normalized[key] = v
	}

	stored, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load settings")
	}
	if stored.Values == nil {
		stored.Values = make(map[string]interface{})
	}
	for k, v := range normalized {
		stored.Values[k] = v
	}
	stored.UserID = userID
	stored.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveSettings(ctx, stored); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save settings")
	}
	s.invalidate(ctx, userID)

	s.logger.Debug("Settings updated", zap.String("user_id", userID), zap.Int("keys", len(normalized)))
	return merge(stored.Values), nil
}

// Reset removes every stored override.
func (s *SettingsService) Reset(ctx context.Context, userID string) (map[string]interface{}, error) {
	if err := s.repo.DeleteSettings(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reset settings")
	}
	s.invalidate(ctx, userID)
	return entities.DefaultSettings(), nil
}

// NotificationPrefs reports whether live notifications are enabled for the
// user and how long info/success notifications stay visible.
func (s *SettingsService) NotificationPrefs(ctx context.Context, userID string) (bool, time.Duration) {
	values, err := s.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Falling back to default notification preferences", zap.Error(err))
		values = entities.DefaultSettings()
	}
	enabled, _ := values["notifications_enabled"].(bool)
	ms, _ := values["notification_duration_ms"].(int)
	return enabled, time.Duration(ms) * time.Millisecond
}

// DefaultUrgency returns the urgency hint applied when a capture has none.
func (s *SettingsService) DefaultUrgency(ctx context.Context, userID string) string {
	values, err := s.Get(ctx, userID)
	if err != nil {
		return "normal"
	}
	hint, _ := values["default_urgency"].(string)
	return hint
}

// AutoExpand reports whether classified ideas should be expanded without
// asking.
func (s *SettingsService) AutoExpand(ctx context.Context, userID string) bool {
	values, err := s.Get(ctx, userID)
	if err != nil {
		return true
	}
	enabled, _ := values["auto_expand"].(bool)
	return enabled
}

func (s *SettingsService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateSettings(ctx, userID)
	}
}

// merge overlays valid stored values on the defaults. Unknown keys and values
// that no longer validate are ignored.
func merge(stored map[string]interface{}) map[string]interface{} {
	out := entities.DefaultSettings()
	for key, value := range stored {
		def, ok := entities.LookupSetting(key)
		if !ok {
			continue
		}
		if v, err := def.Normalize(value); err == nil {
			out[key] = v
		}
	}
	return out
}
