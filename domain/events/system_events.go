package events

// AgentStatusChanged reports an agent starting or finishing work on an idea.
type AgentStatusChanged struct {
	BaseEvent
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	IdeaID  string `json:"idea_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewAgentStatusChanged creates an agent.status event
func NewAgentStatusChanged(agentID, status, ideaID, userID, errMsg string) AgentStatusChanged {
	return AgentStatusChanged{
		BaseEvent: newBase(TypeAgentStatus, agentID, userID),
		AgentID:   agentID,
		Status:    status,
		IdeaID:    ideaID,
		Error:     errMsg,
	}
}

// NotificationChanged carries a notification to the owning user's clients.
type NotificationChanged struct {
	BaseEvent
	Notification interface{} `json:"notification"`
}

// NewNotificationCreated creates a notification.created event
func NewNotificationCreated(notificationID, userID string, notification interface{}) NotificationChanged {
	return NotificationChanged{BaseEvent: newBase(TypeNotificationCreated, notificationID, userID), Notification: notification}
}

// NewNotificationDismissed creates a notification.dismissed event
func NewNotificationDismissed(notificationID, userID string) NotificationChanged {
	return NotificationChanged{BaseEvent: newBase(TypeNotificationDismissed, notificationID, userID)}
}

// SystemAlert is broadcast to every connected user.
type SystemAlert struct {
	BaseEvent
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// NewSystemAlert creates a system.alert event. An empty userID addresses all users.
func NewSystemAlert(severity, message string) SystemAlert {
	return SystemAlert{BaseEvent: newBase(TypeSystemAlert, "system", ""), Severity: severity, Message: message}
}
