package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

type EventType string

const (
	EventNewMessage          EventType = "new_message"
	EventMessageEdited       EventType = "message_edited"
	EventMessageDeleted      EventType = "message_deleted"
	EventReactionAdded       EventType = "reaction_added"
	EventReactionRemoved     EventType = "reaction_removed"
	EventMessagePinned       EventType = "message_pinned"
	EventMessageUnpinned     EventType = "message_unpinned"
	EventTyping              EventType = "typing"
	EventStopTyping          EventType = "stop_typing"
	EventNotificationCreated EventType = "notification_created"
	EventUserOnline          EventType = "user_online"
	EventUserOffline         EventType = "user_offline"
	EventTaskUpdated         EventType = "task_updated"
	EventError               EventType = "error"
)

// Event is one frame on the wire in either direction.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes payload into an outgoing event.
func NewEvent(t EventType, payload any) (Event, error) {
	if payload == nil {
		return Event{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("live: encode %s: %w", t, err)
	}
	return Event{Type: t, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("live: %s event has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("live: decode %s: %w", e.Type, err)
	}
	return nil
}

// --- payloads ---

// new_message carries the full message.
type MessageCreatedPayload = model.Message

type MessageEditedPayload struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"edited_at"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"message_id"`
}

// ReactionPayload is sent for both reaction_added and reaction_removed.
type ReactionPayload struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type PinPayload struct {
	MessageID string `json:"message_id"`
	PinnedBy  string `json:"pinned_by,omitempty"`
}

// TypingPayload: RecipientID empty means the group conversation.
type TypingPayload struct {
	UserID      string `json:"user_id,omitempty"`
	RecipientID string `json:"recipient_id,omitempty"`
}

type UserStatusPayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

type NotificationPayload = model.Notification

type TaskUpdatedPayload = model.Task

type ErrorPayload struct {
	Message string `json:"message"`
}
