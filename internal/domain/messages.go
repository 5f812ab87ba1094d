package domain

// WebSocket frame types from client.
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
	FrameSend  = "send"
	FramePing  = "ping"
)

// WebSocket frame types to client.
const (
	FrameRooms     = "rooms"
	FrameRoomState = "room_state"
	FrameJoined    = "joined"
	FrameLeft      = "left"
	FrameError     = "error"
	FramePong      = "pong"
)

// BaseFrame is the base structure for all WebSocket frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

// JoinFrame is sent by a client to join a room.
type JoinFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// LeaveFrame is sent by a client to leave its current room.
type LeaveFrame struct {
	Type string `json:"type"`
}

// SendFrame is sent by a client to post a message to its current room.
type SendFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Server -> Client frames

// RoomsFrame carries a full replacement snapshot of the room catalog.
type RoomsFrame struct {
	Type  string  `json:"type"`
	Rooms Catalog `json:"rooms"`
}

// RoomStateFrame carries a full replacement snapshot of one room.
type RoomStateFrame struct {
	Type string `json:"type"`
	Room Room   `json:"room"`
}

// JoinedFrame confirms a successful join.
type JoinedFrame struct {
	Type          string `json:"type"`
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
}

// LeftFrame confirms a leave.
type LeftFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// ErrorFrame reports a failed operation.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorFrame creates a new error frame.
func NewErrorFrame(message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    FrameError,
		Message: message,
	}
}
