package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/infrastructure/persistence/memory"
	pkgerrors "dreamcatcher/pkg/errors"
)

type mapCache struct {
	values map[string]map[string]interface{}
}

func (c *mapCache) GetSettings(ctx context.Context, userID string) (map[string]interface{}, bool) {
	v, ok := c.values[userID]
	return v, ok
}

func (c *mapCache) SetSettings(ctx context.Context, userID string, values map[string]interface{}) {
	c.values[userID] = values
}

func (c *mapCache) InvalidateSettings(ctx context.Context, userID string) {
	delete(c.values, userID)
}

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{values: map[string]map[string]interface{}{}}
	svc := NewSettingsService(memory.NewStore(), cache, zap.NewNop())

	t.Run("Should return defaults for a new user", func(t *testing.T) {
		values, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "dark", values["theme"])
		assert.Equal(t, 30, values["sync_interval_seconds"])
		assert.Contains(t, cache.values, "u1")
	})

	t.Run("Should store a valid value and invalidate the cache", func(t *testing.T) {
		values, err := svc.Set(ctx, "u1", "theme", "light")
		require.NoError(t, err)
		assert.Equal(t, "light", values["theme"])
		assert.NotContains(t, cache.values, "u1")

		values, err = svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "light", values["theme"])
	})

	t.Run("Should convert JSON numbers for integer settings", func(t *testing.T) {
		values, err := svc.Update(ctx, "u1", map[string]interface{}{"sync_interval_seconds": float64(60)})
		require.NoError(t, err)
		assert.Equal(t, 60, values["sync_interval_seconds"])
	})

	t.Run("Should reject unknown keys and bad values without saving", func(t *testing.T) {
		_, err := svc.Set(ctx, "u1", "font", "big")
		appErr := pkgerrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.CodeUnknownSetting, appErr.Code)

		_, err = svc.Update(ctx, "u1", map[string]interface{}{"theme": "dark", "sync_interval_seconds": 1})
		assert.True(t, pkgerrors.IsValidation(err))

		values, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "light", values["theme"])
	})

	t.Run("Should reset to defaults", func(t *testing.T) {
		values, err := svc.Reset(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "dark", values["theme"])
	})

	t.Run("Should expose notification preferences", func(t *testing.T) {
		_, err := svc.Update(ctx, "u2", map[string]interface{}{"notifications_enabled": false, "notification_duration_ms": 2000})
		require.NoError(t, err)

		enabled, d := svc.NotificationPrefs(ctx, "u2")
		assert.False(t, enabled)
		assert.Equal(t, 2*time.Second, d)
	})
}
