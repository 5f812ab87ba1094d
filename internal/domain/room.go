package domain

import (
	"strings"
	"time"
)

// MessageKind distinguishes who authored a message.
type MessageKind string

const (
	MessageKindUser      MessageKind = "user"
	MessageKindSystem    MessageKind = "system"
	MessageKindAssistant MessageKind = "ai"
)

// Reserved sender identities for service-authored messages.
const (
	SenderSystem       = "System"
	SenderAssistant    = "AI Tutor"
	SenderUIDSystem    = "system"
	SenderUIDAssistant = "ai_tutor"
)

// AssistantTrigger is the reserved prefix marking a message as
// assistant-directed. Matching is case-insensitive on the trimmed content.
const AssistantTrigger = "@ai"

// Message is a single chat message inside a room. Messages are append-only:
// they are never edited or deleted after creation.
type Message struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"`
	Sender    string      `json:"sender"`
	SenderUID string      `json:"sender_uid"`
	Time      string      `json:"time"`
	Timestamp int64       `json:"timestamp"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"type"`
}

// Participant is an ephemeral per-session identity inside one room.
// A fresh id is generated on every join, even for the same person.
type Participant struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"last_seen"`
}

// Room is a named chat space containing participants and messages.
// Capacity is advisory only and never enforced against joins.
type Room struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Subject      string                 `json:"subject,omitempty"`
	Capacity     int                    `json:"capacity"`
	CreatedAt    int64                  `json:"created_at"`
	LastActivity int64                  `json:"last_activity"`
	Participants map[string]Participant `json:"participants"`
	Messages     []Message              `json:"messages"`
}

// Catalog is the full set of known rooms, keyed by room id.
type Catalog map[string]Room

// CreateRoomRequest represents a create room request.
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Subject     string `json:"subject"`
}

// CreateRoomResponse carries the id of a newly created room.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// AssistantQuestion reports whether content is assistant-directed, and if so
// returns the question text (content after the trigger token, trimmed).
func AssistantQuestion(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < len(AssistantTrigger) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(AssistantTrigger)], AssistantTrigger) {
		return "", false
	}
	return strings.TrimSpace(trimmed[len(AssistantTrigger):]), true
}

// ClockTime renders the human-readable send time shown next to a message.
func ClockTime(t time.Time) string {
	return t.Format("3:04 PM")
}
