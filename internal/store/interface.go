package store

import (
	"context"
	"errors"
	"time"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

var (
	// ErrRoomNotFound is returned when a room id is absent from the tree.
	ErrRoomNotFound = errors.New("room not found")
)

// TreeStore is the shared mutable room tree. Any client may mutate any
// room's participant and message sub-trees; concurrent writes are
// last-write-wins at the field level.
//
// The logical path layout is fixed for compatibility:
//
//	chatRooms/{roomId}                                → room record
//	chatRooms/{roomId}/participants/{participantId}   → participant record
//	chatRooms/{roomId}/messages/{messageId}           → message record
//
// Message order is defined by the store-issued per-room sequence number,
// not by key ordering.
type TreeStore interface {
	// ListRooms returns a full snapshot of the room catalog.
	ListRooms(ctx context.Context) (domain.Catalog, error)

	// GetRoom returns a full snapshot of one room, including participants
	// and messages in sequence order.
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// PutRoom writes a complete room record, including any seeded
	// participants and messages.
	PutRoom(ctx context.Context, room *domain.Room) error

	// SeedRooms writes the given rooms in one shot. Used only by the
	// bootstrap path when the catalog is empty.
	SeedRooms(ctx context.Context, rooms domain.Catalog) error

	// PutParticipant writes a participant record under a room.
	PutParticipant(ctx context.Context, roomID string, p *domain.Participant) error

	// SetParticipantOnline flips a participant's online flag in place.
	// This is the disconnect-triggered write target.
	SetParticipantOnline(ctx context.Context, roomID, participantID string, online bool) error

	// DeleteParticipant removes a participant record entirely.
	DeleteParticipant(ctx context.Context, roomID, participantID string) error

	// NextMessageSeq issues the next monotonically increasing message
	// sequence number for a room.
	NextMessageSeq(ctx context.Context, roomID string) (int64, error)

	// AppendMessage writes a message record under a room. The message's
	// Seq must already be issued by NextMessageSeq.
	AppendMessage(ctx context.Context, roomID string, m *domain.Message) error

	// TouchRoom updates a room's last-activity timestamp.
	TouchRoom(ctx context.Context, roomID string, at time.Time) error

	// Close releases store resources.
	Close() error
}
