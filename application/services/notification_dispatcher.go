package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/events"
	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// NotificationPreferences lets the dispatcher honour per-user settings.
type NotificationPreferences interface {
	NotificationPrefs(ctx context.Context, userID string) (enabled bool, autoDismiss time.Duration)
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	MaxPerUser       int
	DefaultTTL       time.Duration
	AutoDismissAfter time.Duration
}

// Dispatcher keeps a bounded, in-memory list of notifications per user and
// pushes every change to the user's live connections.
type Dispatcher struct {
	mu     sync.Mutex
	byUser map[string][]*entities.Notification
	timers map[string]*time.Timer

	cfg       DispatcherConfig
	publisher ports.EventPublisher
	prefs     NotificationPreferences
	metrics   *observability.Collector
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. publisher and prefs may be nil.
func NewDispatcher(cfg DispatcherConfig, publisher ports.EventPublisher, prefs NotificationPreferences, metrics *observability.Collector, logger *zap.Logger) *Dispatcher {
	if cfg.MaxPerUser <= 0 {
		cfg.MaxPerUser = 50
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		byUser:    make(map[string][]*entities.Notification),
		timers:    make(map[string]*time.Timer),
		cfg:       cfg,
		publisher: publisher,
		prefs:     prefs,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Notify stores a notification, drops the user's oldest one beyond the
// limit, schedules auto-dismissal and pushes it to the user.
func (d *Dispatcher) Notify(ctx context.Context, userID string, level entities.NotificationLevel, title, message string, opts ports.NotifyOptions) (*entities.Notification, error) {
	ttl := d.cfg.DefaultTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	n, err := entities.NewNotification(userID, level, title, message, ttl)
	if err != nil {
		return nil, err
	}
	n.Kind = opts.Kind
	n.Data = opts.Data

	push := true
	autoDismiss := d.defaultAutoDismiss(level, d.cfg.AutoDismissAfter)
	if d.prefs != nil {
		enabled, duration := d.prefs.NotificationPrefs(ctx, userID)
		push = enabled || level == entities.LevelError
		autoDismiss = d.defaultAutoDismiss(level, duration)
	}
	if opts.AutoDismiss != nil {
		autoDismiss = *opts.AutoDismiss
	}
	n.AutoDismiss = autoDismiss

	d.mu.Lock()
	list := append(d.byUser[userID], n)
	var evicted []string
	for len(list) > d.cfg.MaxPerUser {
		d.stopTimerLocked(list[0].ID)
		evicted = append(evicted, list[0].ID)
		list = list[1:]
	}
	d.byUser[userID] = list
	if autoDismiss > 0 {
		id := n.ID
		d.timers[id] = time.AfterFunc(autoDismiss, func() {
			if err := d.Dismiss(context.Background(), userID, id); err != nil && !pkgerrors.IsNotFound(err) {
				d.logger.Warn("Auto-dismiss failed", zap.String("notification_id", id), zap.Error(err))
			}
		})
	}
	total := d.countLocked()
	snapshot := *n
	d.mu.Unlock()

	d.metrics.SetNotifications(total)
	for _, id := range evicted {
		d.publish(ctx, events.NewNotificationDismissed(id, userID))
	}
	if push {
		d.publish(ctx, events.NewNotificationCreated(snapshot.ID, userID, snapshot))
	}
	return &snapshot, nil
}

// List returns the user's unexpired notifications, newest first.
func (d *Dispatcher) List(userID string, unreadOnly bool) []entities.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	out := make([]entities.Notification, 0, len(d.byUser[userID]))
	for _, n := range d.byUser[userID] {
		if n.Expired(now) || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, *n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UnreadCount returns the number of unread, unexpired notifications.
func (d *Dispatcher) UnreadCount(userID string) int {
	return len(d.List(userID, true))
}

// MarkRead marks one notification as read.
func (d *Dispatcher) MarkRead(userID, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, n := range d.byUser[userID] {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return pkgerrors.NewNotFound("notification")
}

// MarkAllRead marks every notification of the user as read and returns how
// many changed.
func (d *Dispatcher) MarkAllRead(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := 0
	for _, n := range d.byUser[userID] {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed
}

// Dismiss removes a notification.
func (d *Dispatcher) Dismiss(ctx context.Context, userID, id string) error {
	d.mu.Lock()
	list := d.byUser[userID]
	idx := -1
	for i, n := range list {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.mu.Unlock()
		return pkgerrors.NewNotFound("notification")
	}
	d.stopTimerLocked(id)
	d.byUser[userID] = append(list[:idx:idx], list[idx+1:]...)
	if len(d.byUser[userID]) == 0 {
		delete(d.byUser, userID)
	}
	total := d.countLocked()
	d.mu.Unlock()

	d.metrics.SetNotifications(total)
	d.publish(ctx, events.NewNotificationDismissed(id, userID))
	return nil
}

// Clear removes all of the user's notifications and returns how many there were.
func (d *Dispatcher) Clear(ctx context.Context, userID string) int {
	d.mu.Lock()
	list := d.byUser[userID]
	for _, n := range list {
		d.stopTimerLocked(n.ID)
	}
	delete(d.byUser, userID)
	total := d.countLocked()
	d.mu.Unlock()

	d.metrics.SetNotifications(total)
	for _, n := range list {
		d.publish(ctx, events.NewNotificationDismissed(n.ID, userID))
	}
	return len(list)
}

// Sweep drops expired notifications and returns how many were removed.
func (d *Dispatcher) Sweep(ctx context.Context) int {
	d.mu.Lock()
	now := d.now()
	removed := 0
	for userID, list := range d.byUser {
		kept := list[:0]
		for _, n := range list {
			if n.Expired(now) {
				d.stopTimerLocked(n.ID)
				removed++
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(d.byUser, userID)
		} else {
			d.byUser[userID] = kept
		}
	}
	total := d.countLocked()
	d.mu.Unlock()

	d.metrics.SetNotifications(total)
	if removed > 0 {
		d.logger.Debug("Swept expired notifications", zap.Int("removed", removed))
	}
	return removed
}

// Stop cancels every pending auto-dismiss timer.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.timers {
		d.stopTimerLocked(id)
	}
}

func (d *Dispatcher) defaultAutoDismiss(level entities.NotificationLevel, after time.Duration) time.Duration {
	switch level {
	case entities.LevelInfo, entities.LevelSuccess:
		return after
	}
	return 0
}

func (d *Dispatcher) stopTimerLocked(id string) {
	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}
}

func (d *Dispatcher) countLocked() int {
	total := 0
	for _, list := range d.byUser {
		total += len(list)
	}
	return total
}

func (d *Dispatcher) publish(ctx context.Context, evt events.DomainEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, evt); err != nil {
		d.logger.Warn("Failed to push notification event",
			zap.String("event_type", evt.GetEventType()),
			zap.Error(err),
		)
	}
}
