package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrodneybargayo/gabay-rooms/internal/assistant"
	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
)

// recordingStore wraps a TreeStore, recording the order of mutating
// calls and optionally failing selected operations.
type recordingStore struct {
	store.TreeStore

	mu               sync.Mutex
	calls            []string
	failAppend       bool
	failPut          bool
	failParticipant  bool
	onlineFlagWrites []bool
}

func (r *recordingStore) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recordingStore) callOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recordingStore) PutParticipant(ctx context.Context, roomID string, p *domain.Participant) error {
	r.record("put_participant")
	if r.failParticipant {
		return errors.New("participant write refused")
	}
	return r.TreeStore.PutParticipant(ctx, roomID, p)
}

func (r *recordingStore) DeleteParticipant(ctx context.Context, roomID, participantID string) error {
	r.record("delete_participant")
	return r.TreeStore.DeleteParticipant(ctx, roomID, participantID)
}

func (r *recordingStore) SetParticipantOnline(ctx context.Context, roomID, participantID string, online bool) error {
	r.record("set_online")
	r.mu.Lock()
	r.onlineFlagWrites = append(r.onlineFlagWrites, online)
	r.mu.Unlock()
	return r.TreeStore.SetParticipantOnline(ctx, roomID, participantID, online)
}

func (r *recordingStore) AppendMessage(ctx context.Context, roomID string, m *domain.Message) error {
	r.record("append_message")
	if r.failAppend {
		return errors.New("message write refused")
	}
	return r.TreeStore.AppendMessage(ctx, roomID, m)
}

func (r *recordingStore) PutRoom(ctx context.Context, room *domain.Room) error {
	r.record("put_room")
	if r.failPut {
		return errors.New("room write refused")
	}
	return r.TreeStore.PutRoom(ctx, room)
}

func (r *recordingStore) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	r.record("touch_room")
	return r.TreeStore.TouchRoom(ctx, roomID, at)
}

// fixedClock advances by a millisecond per call so ids stay unique.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// cannedResponder answers every question with a fixed text.
type cannedResponder struct {
	text string
}

func (c *cannedResponder) Respond(ctx context.Context, question string) assistant.Reply {
	return assistant.Reply{Success: true, Text: c.text}
}

func newTestService(t *testing.T, rec *recordingStore) RoomSync {
	t.Helper()
	return NewRoomSync(Deps{
		Store:        rec,
		Clock:        &fixedClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		Responder:    &cannedResponder{text: "canned answer"},
		ReplyDelay:   10 * time.Millisecond,
		SeedDefaults: true,
	})
}

func newRecordingStore() *recordingStore {
	return &recordingStore{TreeStore: store.NewMemoryStore()}
}

func TestBootstrapSeedsOnceAndOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)

	require.NoError(t, svc.Bootstrap(ctx))

	catalog, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	assert.Equal(t, "Math Study Group", catalog["math-study-group"].Name)
	assert.Equal(t, 6, catalog["physics-lab"].Capacity)
	assert.Empty(t, catalog["computer-science"].Messages)

	// A second call must not reseed or duplicate anything.
	require.NoError(t, svc.Bootstrap(ctx))
	catalog, err = svc.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 3)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	require.Len(t, room.Messages, 1)
	assert.Equal(t, "welcome", room.Messages[0].ID)
}

func TestBootstrapSkipsSeedWhenCatalogPopulated(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	require.NoError(t, rec.TreeStore.PutRoom(ctx, &domain.Room{ID: "existing", Name: "Existing"}))

	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	catalog, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}

func TestJoinRoomWriteOrderAndState(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))
	rec.mu.Lock()
	rec.calls = nil
	rec.mu.Unlock()

	sess := domain.NewSession("client-1")
	pid, err := svc.JoinRoom(ctx, sess, "math-study-group", "  Alice  ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pid, "user_"))

	// Participant record lands before the join message.
	order := rec.callOrder()
	require.GreaterOrEqual(t, len(order), 3)
	assert.Equal(t, "put_participant", order[0])
	assert.Contains(t, order, "append_message")
	assert.Contains(t, order, "touch_room")

	roomID, userID, userName, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, "math-study-group", roomID)
	assert.Equal(t, pid, userID)
	assert.Equal(t, "Alice", userName)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	p, ok := room.Participants[pid]
	require.True(t, ok)
	assert.True(t, p.Online)
	assert.Equal(t, "Alice", p.Name)

	last := room.Messages[len(room.Messages)-1]
	assert.Equal(t, domain.MessageKindSystem, last.Kind)
	assert.Equal(t, "Alice joined the room", last.Content)
}

func TestJoinRoomUnknownRoomLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))
	rec.mu.Lock()
	rec.calls = nil
	rec.mu.Unlock()

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "no-such-room", "Alice")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
	assert.NotContains(t, rec.callOrder(), "put_participant")

	_, _, _, ok := sess.Current()
	assert.False(t, ok)
}

func TestJoinRoomUnknownRoomKeepsCurrentMembership(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	uid, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.NoError(t, err)

	rec.mu.Lock()
	rec.calls = nil
	rec.mu.Unlock()

	_, err = svc.JoinRoom(ctx, sess, "no-such-room", "Alice")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
	assert.Empty(t, rec.callOrder())

	roomID, userID, userName, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, "math-study-group", roomID)
	assert.Equal(t, uid, userID)
	assert.Equal(t, "Alice", userName)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	assert.Contains(t, room.Participants, uid)
}

func TestJoinRoomEmptyNameRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newRecordingStore())
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestJoinRoomFailsCleanlyWhenParticipantWriteFails(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	rec.failParticipant = true
	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.Error(t, err)

	room, gerr := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, gerr)
	assert.Empty(t, room.Participants)
	require.Len(t, room.Messages, 1, "no join message without a participant record")

	_, _, _, ok := sess.Current()
	assert.False(t, ok)
}

func TestJoinRoomRollsBackParticipantWhenMessageFails(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	rec.failAppend = true
	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.Error(t, err)

	// No partial commit: the participant write is compensated.
	assert.Contains(t, rec.callOrder(), "delete_participant")
	room, gerr := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, gerr)
	assert.Empty(t, room.Participants)

	_, _, _, ok := sess.Current()
	assert.False(t, ok)
}

func TestLeaveRoomRemovesParticipantEntirely(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	pid, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, sess))

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	_, stillThere := room.Participants[pid]
	assert.False(t, stillThere, "leave must remove the record, not just flip online")

	last := room.Messages[len(room.Messages)-1]
	assert.Equal(t, "Alice left the room", last.Content)

	_, _, _, ok := sess.Current()
	assert.False(t, ok)

	assert.ErrorIs(t, svc.LeaveRoom(ctx, sess), ErrNotInRoom)
}

func TestDisconnectFlipsOnlineButKeepsRecord(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	pid, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.NoError(t, err)

	svc.HandleDisconnect(ctx, sess)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	p, ok := room.Participants[pid]
	require.True(t, ok, "disconnect keeps the participant record")
	assert.False(t, p.Online)

	// The guard fires once.
	svc.HandleDisconnect(ctx, sess)
	rec.mu.Lock()
	writes := len(rec.onlineFlagWrites)
	rec.mu.Unlock()
	assert.Equal(t, 1, writes)
}

func TestSendMessageAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	pid, err := svc.JoinRoom(ctx, sess, "math-study-group", "Bob")
	require.NoError(t, err)

	first, err := svc.SendMessage(ctx, sess, " hello there ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", first.Content)
	assert.Equal(t, pid, first.SenderUID)
	assert.Equal(t, domain.MessageKindUser, first.Kind)

	second, err := svc.SendMessage(ctx, sess, "again")
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	_, err = svc.SendMessage(ctx, sess, "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	for i := 1; i < len(room.Messages); i++ {
		assert.Less(t, room.Messages[i-1].Seq, room.Messages[i].Seq)
	}
}

func TestSendMessageRequiresRoom(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newRecordingStore())
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.SendMessage(ctx, sess, "hello")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestAssistantReplyArrivesAfterDelay(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Bob")
	require.NoError(t, err)

	sent, err := svc.SendMessage(ctx, sess, "@ai what is a derivative")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		room, gerr := svc.GetRoom(ctx, "math-study-group")
		if gerr != nil {
			return false
		}
		last := room.Messages[len(room.Messages)-1]
		return last.Kind == domain.MessageKindAssistant
	}, time.Second, 5*time.Millisecond)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	last := room.Messages[len(room.Messages)-1]
	assert.Equal(t, domain.SenderAssistant, last.Sender)
	assert.Equal(t, domain.SenderUIDAssistant, last.SenderUID)
	assert.Equal(t, "canned answer", last.Content)
	assert.Greater(t, last.Seq, sent.Seq)
}

func TestAssistantAnswersDerivativeQuestion(t *testing.T) {
	ctx := context.Background()
	svc := NewRoomSync(Deps{
		Store:        store.NewMemoryStore(),
		Clock:        &fixedClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		Responder:    assistant.NewRuleResponder(),
		ReplyDelay:   10 * time.Millisecond,
		SeedDefaults: true,
	})
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Bob")
	require.NoError(t, err)

	sent, err := svc.SendMessage(ctx, sess, "@ai what is a derivative")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		room, gerr := svc.GetRoom(ctx, "math-study-group")
		if gerr != nil {
			return false
		}
		last := room.Messages[len(room.Messages)-1]
		return last.Kind == domain.MessageKindAssistant
	}, time.Second, 5*time.Millisecond)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	last := room.Messages[len(room.Messages)-1]
	assert.Contains(t, last.Content, "derivative")
	assert.Greater(t, last.Timestamp, sent.Timestamp)
}

func TestAssistantReplyCancelledOnLeave(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, sess, "@AI explain limits")
	require.NoError(t, err)
	require.NoError(t, svc.LeaveRoom(ctx, sess))

	time.Sleep(50 * time.Millisecond)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	for _, m := range room.Messages {
		assert.NotEqual(t, domain.MessageKindAssistant, m.Kind, "pending reply must be cancelled on leave")
	}
}

func TestPlainMessageSchedulesNoReply(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, sess, "aight, no trigger here")
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	room, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)
	for _, m := range room.Messages {
		assert.NotEqual(t, domain.MessageKindAssistant, m.Kind)
	}
}

func TestCreateRoomSeedsWelcomeMessage(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	id, err := svc.CreateRoom(ctx, &domain.CreateRoomRequest{
		Name:        "  Test Room  ",
		Description: "A room for testing",
		Subject:     "Testing",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "room_"))

	room, err := svc.GetRoom(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Test Room", room.Name)
	assert.Equal(t, 8, room.Capacity)
	require.Len(t, room.Messages, 1)
	assert.Equal(t, "welcome", room.Messages[0].ID)
	assert.Equal(t, "Welcome to Test Room! A room for testing", room.Messages[0].Content)
	assert.Empty(t, room.Participants)
}

func TestCreateRoomValidatesAndPropagatesFailure(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	_, err := svc.CreateRoom(ctx, &domain.CreateRoomRequest{Name: " ", Description: "d"})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.CreateRoom(ctx, &domain.CreateRoomRequest{Name: "n", Description: "  "})
	assert.ErrorIs(t, err, ErrEmptyDescription)

	rec.failPut = true
	_, err = svc.CreateRoom(ctx, &domain.CreateRoomRequest{Name: "n", Description: "d"})
	require.Error(t, err)
}

func TestDoubleJoinGuard(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	require.True(t, sess.BeginJoin("math-study-group"))

	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	assert.ErrorIs(t, err, ErrJoinInFlight)
}

func TestSubscribersGetSnapshotUpdates(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	ch := svc.SubscribeUpdates("sub-1")
	defer svc.Unsubscribe("sub-1")

	sess := domain.NewSession("client-1")
	pid, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.NoError(t, err)

	var sawRoom bool
	deadline := time.After(time.Second)
	for !sawRoom {
		select {
		case u := <-ch:
			if u.Room != nil && u.Room.ID == "math-study-group" {
				_, ok := u.Room.Participants[pid]
				assert.True(t, ok)
				sawRoom = true
			}
		case <-deadline:
			t.Fatal("no room snapshot update received")
		}
	}
}

func TestSendMessageRefreshesCatalogSubscribers(t *testing.T) {
	ctx := context.Background()
	rec := newRecordingStore()
	svc := newTestService(t, rec)
	require.NoError(t, svc.Bootstrap(ctx))

	sess := domain.NewSession("client-1")
	_, err := svc.JoinRoom(ctx, sess, "math-study-group", "Alice")
	require.NoError(t, err)

	before, err := svc.GetRoom(ctx, "math-study-group")
	require.NoError(t, err)

	ch := svc.SubscribeUpdates("lobby-1")
	defer svc.Unsubscribe("lobby-1")

	_, err = svc.SendMessage(ctx, sess, "anyone around?")
	require.NoError(t, err)

	var sawCatalog bool
	deadline := time.After(time.Second)
	for !sawCatalog {
		select {
		case u := <-ch:
			if u.Rooms == nil {
				continue
			}
			room, ok := u.Rooms["math-study-group"]
			require.True(t, ok)
			assert.Greater(t, room.LastActivity, before.LastActivity)
			sawCatalog = true
		case <-deadline:
			t.Fatal("no catalog update received after message send")
		}
	}
}
