package entities

import (
	"fmt"
	"time"

	pkgerrors "dreamcatcher/pkg/errors"
)

// SettingKind is the value type a setting accepts.
type SettingKind string

const (
	KindBool   SettingKind = "bool"
	KindString SettingKind = "string"
	KindInt    SettingKind = "int"
)

// SettingDefinition declares a known setting and its default.
type SettingDefinition struct {
	Key     string
	Kind    SettingKind
	Default interface{}
	Allowed []string
	Min     int
	Max     int
}

// SettingDefinitions lists every setting a client may store.
var SettingDefinitions = []SettingDefinition{
	{Key: "theme", Kind: KindString, Default: "dark", Allowed: []string{"dark", "light", "system"}},
	{Key: "auto_transcribe", Kind: KindBool, Default: true},
	{Key: "voice_language", Kind: KindString, Default: "en-US"},
	{Key: "notifications_enabled", Kind: KindBool, Default: true},
	{Key: "sound_enabled", Kind: KindBool, Default: true},
	{Key: "default_urgency", Kind: KindString, Default: "normal", Allowed: []string{"low", "normal", "high", "urgent", "emergency"}},
	{Key: "auto_expand", Kind: KindBool, Default: true},
	{Key: "offline_mode", Kind: KindBool, Default: false},
	{Key: "sync_interval_seconds", Kind: KindInt, Default: 30, Min: 5, Max: 3600},
	{Key: "notification_duration_ms", Kind: KindInt, Default: 5000, Min: 0, Max: 60000},
}

// LookupSetting returns the definition for key.
func LookupSetting(key string) (SettingDefinition, bool) {
	for _, d := range SettingDefinitions {
		if d.Key == key {
			return d, true
		}
	}
	return SettingDefinition{}, false
}

// DefaultSettings returns a fresh map of every default value.
func DefaultSettings() map[string]interface{} {
	out := make(map[string]interface{}, len(SettingDefinitions))
	for _, d := range SettingDefinitions {
		out[d.Key] = d.Default
	}
	return out
}

// Normalize checks value against the definition and converts JSON numbers to
// int for integer settings.
func (d SettingDefinition) Normalize(value interface{}) (interface{}, error) {
	switch d.Kind {
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, invalidSetting(d.Key, "a boolean")
		}
		return b, nil
	case KindString:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil, invalidSetting(d.Key, "a non-empty string")
		}
		if len(d.Allowed) > 0 && !contains(d.Allowed, s) {
			return nil, invalidSetting(d.Key, fmt.Sprintf("one of %v", d.Allowed))
		}
		return s, nil
	case KindInt:
		var n int
		switch v := value.(type) {
		case int:
			n = v
		case int64:
			n = int(v)
		case float64:
			if v != float64(int(v)) {
				return nil, invalidSetting(d.Key, "an integer")
			}
			n = int(v)
		default:
			return nil, invalidSetting(d.Key, "an integer")
		}
		if n < d.Min || n > d.Max {
			return nil, invalidSetting(d.Key, fmt.Sprintf("between %d and %d", d.Min, d.Max))
		}
		return n, nil
	}
	return nil, invalidSetting(d.Key, "a supported value")
}

// UserSettings is a user's stored overrides.
type UserSettings struct {
	UserID    string                 `json:"user_id"`
	Values    map[string]interface{} `json:"values"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func invalidSetting(key, want string) error {
	return pkgerrors.NewValidation(fmt.Sprintf("setting %q must be %s", key, want)).WithDetail("key", key)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
