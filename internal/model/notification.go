package model

import "time"

type NotificationCategory string

const (
	NotificationTask      NotificationCategory = "task"
	NotificationReminder  NotificationCategory = "reminder"
	NotificationCompleted NotificationCategory = "completed"
	NotificationMessage   NotificationCategory = "message"
	NotificationOther     NotificationCategory = "other"
)

// Known reports whether c is one of the categories the backend documents.
func (c NotificationCategory) Known() bool {
	switch c {
	case NotificationTask, NotificationReminder, NotificationCompleted, NotificationMessage, NotificationOther:
		return true
	}
	return false
}

type Notification struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Category  NotificationCategory `json:"type"`
	Read      bool                 `json:"read"`
	RelatedID string               `json:"related_id,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
