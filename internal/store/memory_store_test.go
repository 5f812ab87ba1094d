package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

func seededRoom() *domain.Room {
	return &domain.Room{
		ID:           "math-study-group",
		Name:         "Math Study Group",
		Description:  "Collaborative space for calculus and algebra",
		Subject:      "Mathematics",
		Capacity:     8,
		CreatedAt:    time.Now().UnixMilli(),
		LastActivity: time.Now().UnixMilli(),
		Participants: map[string]domain.Participant{},
		Messages: []domain.Message{
			{
				ID:        "welcome",
				Seq:       1,
				Sender:    domain.SenderSystem,
				SenderUID: domain.SenderUIDSystem,
				Content:   "Welcome to the Math Study Group!",
				Kind:      domain.MessageKindSystem,
			},
		},
	}
}

func TestMemoryStoreRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetRoom(ctx, "math-study-group")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	require.NoError(t, s.PutRoom(ctx, seededRoom()))

	room, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Equal(t, "Math Study Group", room.Name)
	require.Len(t, room.Messages, 1)
	assert.Equal(t, "welcome", room.Messages[0].ID)

	catalog, err := s.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutRoom(ctx, seededRoom()))

	snapshot, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)

	// Mutating the snapshot must not leak back into the store.
	snapshot.Participants["user_1"] = domain.Participant{UID: "user_1", Name: "Alice"}
	snapshot.Messages[0].Content = "tampered"

	fresh, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Empty(t, fresh.Participants)
	assert.Equal(t, "Welcome to the Math Study Group!", fresh.Messages[0].Content)
}

func TestMemoryStoreParticipants(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutRoom(ctx, seededRoom()))

	p := &domain.Participant{UID: "user_1", Name: "Alice", Online: true, LastSeen: time.Now().UnixMilli()}
	require.NoError(t, s.PutParticipant(ctx, "math-study-group", p))

	require.NoError(t, s.SetParticipantOnline(ctx, "math-study-group", "user_1", false))
	room, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.False(t, room.Participants["user_1"].Online)

	// Flipping the flag on an absent participant is a no-op, not an error.
	require.NoError(t, s.SetParticipantOnline(ctx, "math-study-group", "user_missing", false))

	require.NoError(t, s.DeleteParticipant(ctx, "math-study-group", "user_1"))
	room, err = s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Empty(t, room.Participants)
}

func TestMemoryStoreMessageSequencing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutRoom(ctx, seededRoom()))

	// Seeded room carries seq 1, so issued numbers continue from there.
	seq, err := s.NextMessageSeq(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)

	seq, err = s.NextMessageSeq(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)

	require.NoError(t, s.AppendMessage(ctx, "math-study-group", &domain.Message{ID: "m3", Seq: 3, Content: "second"}))
	require.NoError(t, s.AppendMessage(ctx, "math-study-group", &domain.Message{ID: "m2", Seq: 2, Content: "first"}))

	room, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	require.Len(t, room.Messages, 3)
	assert.Equal(t, []string{"welcome", "m2", "m3"}, []string{room.Messages[0].ID, room.Messages[1].ID, room.Messages[2].ID})
}

func TestMemoryStoreTouchRoom(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutRoom(ctx, seededRoom()))

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchRoom(ctx, "math-study-group", at))

	room, err := s.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Equal(t, at.UnixMilli(), room.LastActivity)
}
