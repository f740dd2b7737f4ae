package domain

import "time"

// Notification severities.
const (
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
	NotificationInfo    = "info"
)

// Notification is an event message addressed to one user.
type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	Read        bool      `json:"read"`
	ServiceType string    `json:"service_type,omitempty"`
	ResourceID  string    `json:"resource_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidNotificationType reports whether kind is a known severity.
func ValidNotificationType(kind string) bool {
	switch kind {
	case NotificationSuccess, NotificationWarning, NotificationError, NotificationInfo:
		return true
	}
	return false
}
