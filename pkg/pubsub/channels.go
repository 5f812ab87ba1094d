package pubsub

import "fmt"

// Channel naming conventions for the room synchronization system.
const (
	// Per-room change events (participants, messages, activity).
	ChannelRoomEvents = "chat:room:%s:events"

	// Room-catalog change events (rooms created or seeded).
	ChannelCatalog = "chat:catalog:events"

	// Pattern matching every per-room channel.
	PatternAllRoomEvents = "chat:room:*:events"
)

// Event types carried on the bus.
const (
	EventRoomCreated       = "room_created"
	EventRoomsSeeded       = "rooms_seeded"
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventPresenceChanged   = "presence_changed"
	EventMessageAdded      = "message_added"
	EventActivityTouched   = "activity_touched"
)

// RoomEventsChannel returns the channel name for a room's change events.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// ParticipantPayload describes a participant joining or leaving a room.
type ParticipantPayload struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Online        bool   `json:"online"`
}

// MessagePayload describes a message appended to a room.
type MessagePayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
}

// RoomPayload describes a room-level catalog change.
type RoomPayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name,omitempty"`
}
