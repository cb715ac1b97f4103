package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "dreamcatcher/pkg/errors"
)

func TestSettingDefinition_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		want    interface{}
		wantErr bool
	}{
		{"bool ok", "sound_enabled", false, false, false},
		{"bool wrong type", "sound_enabled", "no", nil, true},
		{"enum ok", "theme", "light", "light", false},
		{"enum rejected", "theme", "neon", nil, true},
		{"json number to int", "sync_interval_seconds", float64(60), 60, false},
		{"fractional rejected", "sync_interval_seconds", 1.5, nil, true},
		{"below minimum", "sync_interval_seconds", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, ok := LookupSetting(tt.key)
			require.True(t, ok)

			got, err := def.Normalize(tt.value)
			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	defaults := DefaultSettings()
	assert.Len(t, defaults, len(SettingDefinitions))
	assert.Equal(t, "dark", defaults["theme"])

	defaults["theme"] = "light"
	assert.Equal(t, "dark", DefaultSettings()["theme"])
}

func TestNewNotification(t *testing.T) {
	n, err := NewNotification("u1", LevelSuccess, "Idea captured", "", time.Minute)
	require.NoError(t, err)
	assert.False(t, n.Expired(time.Now()))
	assert.True(t, n.Expired(time.Now().Add(2*time.Minute)))

	_, err = NewNotification("u1", "loud", "x", "y", time.Minute)
	assert.Error(t, err)

	_, err = NewNotification("", LevelInfo, "x", "y", time.Minute)
	assert.Error(t, err)
}
