package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "dreamcatcher/pkg/errors"
)

// NotificationLevel controls presentation and default dismissal.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// IsValid reports whether l is a known level.
func (l NotificationLevel) IsValid() bool {
	switch l {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return true
	}
	return false
}

// Notification is a short-lived message addressed to one user.
type Notification struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Level       NotificationLevel      `json:"level"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Kind        string                 `json:"kind,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Read        bool                   `json:"read"`
	AutoDismiss time.Duration          `json:"-"`
	CreatedAt   time.Time              `json:"created_at"`
	ExpiresAt   time.Time              `json:"expires_at"`
}

// NewNotification validates and builds a notification expiring after ttl.
func NewNotification(userID string, level NotificationLevel, title, message string, ttl time.Duration) (*Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.NewValidation("notification requires a user")
	}
	if !level.IsValid() {
		return nil, pkgerrors.NewValidation("unknown notification level: " + string(level))
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(message) == "" {
		return nil, pkgerrors.NewValidation("notification needs a title or a message")
	}
	now := time.Now().UTC()
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the notification's TTL has elapsed at now.
func (n *Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}
