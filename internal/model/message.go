package model

import (
	"slices"
	"time"
)

type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Attachment struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// Reaction is one emoji on a message together with the users who reacted with it.
// Users holds each user id at most once.
type Reaction struct {
	Emoji string   `json:"emoji"`
	Users []string `json:"users"`
}

type Message struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"client_message_id,omitempty"`
	Sender      UserRef      `json:"sender"`
	RecipientID string       `json:"recipient_id,omitempty"` // empty: group message
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyToID   string       `json:"reply_to,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Pinned      bool         `json:"is_pinned,omitempty"`
	Edited      bool         `json:"is_edited,omitempty"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
	Read        bool         `json:"is_read,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// IsGroup reports whether the message was broadcast to the group.
func (m *Message) IsGroup() bool { return m.RecipientID == "" }

// Clone returns a deep copy so callers can hand out snapshots without sharing slices.
func (m Message) Clone() Message {
	out := m
	out.Attachments = slices.Clone(m.Attachments)
	if m.Reactions != nil {
		out.Reactions = make([]Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			out.Reactions[i] = Reaction{Emoji: r.Emoji, Users: slices.Clone(r.Users)}
		}
	}
	if m.EditedAt != nil {
		t := *m.EditedAt
		out.EditedAt = &t
	}
	return out
}
