package service

import (
	"context"
	"errors"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

var (
	ErrEmptyName        = errors.New("name must not be empty")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrEmptyContent     = errors.New("message content must not be empty")
	ErrNotInRoom        = errors.New("not in a room")
	ErrJoinInFlight     = errors.New("join already in progress")
)

// Update is a full-value replacement snapshot pushed to subscribers.
// Exactly one of Rooms or Room is set: Rooms on catalog changes, Room on
// per-room changes. Subscribers replace their local copy wholesale, no
// diffing.
type Update struct {
	Rooms domain.Catalog
	Room  *domain.Room
}

// RoomSync is the room synchronization core: room catalog, presence,
// message delivery, and the embedded assistant responder.
type RoomSync interface {
	// Bootstrap seeds the default rooms when the catalog is empty.
	// Safe to call more than once; only the first call does work.
	Bootstrap(ctx context.Context) error

	// ListRooms returns a full snapshot of the room catalog.
	ListRooms(ctx context.Context) (domain.Catalog, error)

	// GetRoom returns a full snapshot of one room.
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// CreateRoom creates a room with a seeded welcome message and
	// returns its id. Store failures propagate to the caller.
	CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (string, error)

	// JoinRoom adds the session to a room with a fresh participant
	// identity and returns the participant id. Writes are ordered so
	// every observable intermediate state is presence-correct, and the
	// session's local state commits only after all writes succeed.
	JoinRoom(ctx context.Context, sess *domain.Session, roomID, userName string) (string, error)

	// LeaveRoom removes the session's participant record entirely and
	// cancels any pending assistant reply it scheduled.
	LeaveRoom(ctx context.Context, sess *domain.Session) error

	// SendMessage appends a message to the session's current room. An
	// assistant-directed message additionally schedules a delayed
	// assistant reply tied to the session.
	SendMessage(ctx context.Context, sess *domain.Session, content string) (*domain.Message, error)

	// HandleDisconnect runs the session's disconnect guard: the
	// participant record stays but its online flag flips to false.
	HandleDisconnect(ctx context.Context, sess *domain.Session)

	// SubscribeUpdates registers a subscriber for snapshot updates.
	SubscribeUpdates(subscriberID string) <-chan Update

	// Unsubscribe removes a subscriber and closes its channel.
	Unsubscribe(subscriberID string)

	// StartWatcher consumes bus events from other instances and fans
	// snapshot updates out to local subscribers. Returns when ctx ends.
	StartWatcher(ctx context.Context) error
}
