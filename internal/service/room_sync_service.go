package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/johnrodneybargayo/gabay-rooms/internal/assistant"
	"github.com/johnrodneybargayo/gabay-rooms/internal/audit"
	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/ident"
	"github.com/johnrodneybargayo/gabay-rooms/internal/repository"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/pubsub"
)

const (
	defaultReplyDelay      = 1500 * time.Millisecond
	defaultRoomCapacity    = 8
	subscriberBuffer       = 16
	backgroundWriteTimeout = 10 * time.Second
)

// Deps carries the injectable collaborators of the room sync core.
// Archive and Bus are optional; everything else is required (Clock, IDs,
// ReplyDelay and DefaultCapacity get sensible defaults when zero).
type Deps struct {
	Store           store.TreeStore
	Archive         repository.ArchiveRepository
	Bus             pubsub.PubSub
	IDs             ident.Generator
	Clock           ident.Clock
	Responder       assistant.Responder
	ReplyDelay      time.Duration
	DefaultCapacity int
	SeedDefaults    bool
}

type roomSyncService struct {
	archive         repository.ArchiveRepository
	bus             pubsub.PubSub
	ids             ident.Generator
	clock           ident.Clock
	responder       assistant.Responder
	replyDelay      time.Duration
	defaultCapacity int
	seedDefaults    bool

	mu           sync.RWMutex
	store        store.TreeStore
	subs         map[string]chan Update
	bootstrapped bool
}

// NewRoomSync creates the room synchronization service.
func NewRoomSync(deps Deps) RoomSync {
	if deps.Clock == nil {
		deps.Clock = ident.SystemClock{}
	}
	if deps.IDs == nil {
		deps.IDs = ident.NewGenerator(deps.Clock)
	}
	if deps.Responder == nil {
		deps.Responder = assistant.NewRuleResponder()
	}
	if deps.ReplyDelay == 0 {
		deps.ReplyDelay = defaultReplyDelay
	}
	if deps.DefaultCapacity == 0 {
		deps.DefaultCapacity = defaultRoomCapacity
	}
	return &roomSyncService{
		archive:         deps.Archive,
		bus:             deps.Bus,
		ids:             deps.IDs,
		clock:           deps.Clock,
		responder:       deps.Responder,
		replyDelay:      deps.ReplyDelay,
		defaultCapacity: deps.DefaultCapacity,
		seedDefaults:    deps.SeedDefaults,
		store:           deps.Store,
		subs:            make(map[string]chan Update),
	}
}

func (s *roomSyncService) treeStore() store.TreeStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *roomSyncService) swapStore(st store.TreeStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
}

// Bootstrap seeds the default rooms when the catalog is empty. If the
// remote store is unreachable the service degrades to an in-memory store
// so a single node can still serve rooms.
func (s *roomSyncService) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return nil
	}
	s.bootstrapped = true
	s.mu.Unlock()

	l := log.Ctx(ctx)

	catalog, err := s.treeStore().ListRooms(ctx)
	if err != nil {
		l.Warn().Err(err).Msg("room store unreachable, degrading to in-memory store")
		s.swapStore(store.NewMemoryStore())
		catalog = domain.Catalog{}
	}

	if len(catalog) > 0 {
		l.Info().Int("rooms", len(catalog)).Msg("room catalog already populated, skipping seed")
		return nil
	}
	if !s.seedDefaults {
		return nil
	}

	defaults := DefaultRooms(s.clock)
	if err := s.treeStore().SeedRooms(ctx, defaults); err != nil {
		l.Warn().Err(err).Msg("failed to seed remote store, degrading to in-memory store")
		s.swapStore(store.NewMemoryStore())
		if err := s.treeStore().SeedRooms(ctx, defaults); err != nil {
			return fmt.Errorf("failed to seed rooms: %w", err)
		}
	}

	s.archiveCatalog(ctx, defaults)

	l.Info().Int("rooms", len(defaults)).Msg("default rooms seeded")
	s.publishCatalogEvent(ctx, pubsub.EventRoomsSeeded, pubsub.RoomPayload{})
	s.notifyCatalog(ctx)
	return nil
}

func (s *roomSyncService) archiveCatalog(ctx context.Context, catalog domain.Catalog) {
	if s.archive == nil {
		return
	}
	for id := range catalog {
		room := catalog[id]
		if err := s.archive.SaveRoom(ctx, &room); err != nil {
			continue
		}
		for i := range room.Messages {
			_ = s.archive.SaveMessage(ctx, room.ID, &room.Messages[i])
		}
	}
}

func (s *roomSyncService) ListRooms(ctx context.Context) (domain.Catalog, error) {
	return s.treeStore().ListRooms(ctx)
}

func (s *roomSyncService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.treeStore().GetRoom(ctx, roomID)
}

func (s *roomSyncService) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (string, error) {
	l := log.Ctx(ctx)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrEmptyName
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return "", ErrEmptyDescription
	}

	now := s.clock.Now()
	roomID := s.ids.RoomID()

	welcome := domain.Message{
		ID:        "welcome",
		Seq:       1,
		Sender:    domain.SenderSystem,
		SenderUID: domain.SenderUIDSystem,
		Time:      domain.ClockTime(now),
		Timestamp: now.UnixMilli(),
		Content:   fmt.Sprintf("Welcome to %s! %s", name, description),
		Kind:      domain.MessageKindSystem,
	}
	room := &domain.Room{
		ID:           roomID,
		Name:         name,
		Description:  description,
		Subject:      strings.TrimSpace(req.Subject),
		Capacity:     s.defaultCapacity,
		CreatedAt:    now.UnixMilli(),
		LastActivity: now.UnixMilli(),
		Participants: map[string]domain.Participant{},
		Messages:     []domain.Message{welcome},
	}

	if err := s.treeStore().PutRoom(ctx, room); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to create room")
		return "", fmt.Errorf("failed to create room: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.SaveRoom(ctx, room); err == nil {
			_ = s.archive.SaveMessage(ctx, roomID, &welcome)
		}
	}

	audit.LogWithDetail(ctx, audit.ActionCreateRoom, roomID, "", name, "room created")
	s.publishCatalogEvent(ctx, pubsub.EventRoomCreated, pubsub.RoomPayload{RoomID: roomID, Name: name})
	s.notifyCatalog(ctx)

	return roomID, nil
}

// JoinRoom write order is load-bearing: participant record first, then
// the disconnect guard, then the join message, then last-activity, and
// the session's local state only after everything remote succeeded.
func (s *roomSyncService) JoinRoom(ctx context.Context, sess *domain.Session, roomID, userName string) (string, error) {
	l := log.Ctx(ctx)

	name := strings.TrimSpace(userName)
	if name == "" {
		return "", ErrEmptyName
	}

	// Validate the target before the implicit leave: an unknown room id
	// must produce no writes and no state change at all.
	st := s.treeStore()
	if _, err := st.GetRoom(ctx, roomID); err != nil {
		return "", err
	}

	if _, _, _, ok := sess.Current(); ok {
		if err := s.LeaveRoom(ctx, sess); err != nil {
			return "", err
		}
	}

	if !sess.BeginJoin(roomID) {
		l.Debug().Str(log.FieldRoomID, roomID).Msg("join already in flight, ignoring")
		return "", ErrJoinInFlight
	}
	defer sess.EndJoin(roomID)

	now := s.clock.Now()
	participantID := s.ids.ParticipantID()
	participant := &domain.Participant{
		UID:      participantID,
		Name:     name,
		Online:   true,
		LastSeen: now.UnixMilli(),
	}
	if err := st.PutParticipant(ctx, roomID, participant); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to write participant")
		return "", fmt.Errorf("failed to join room: %w", err)
	}

	// From here on a dropped connection must leave the record in place
	// with online=false, so the guard goes up before any further write.
	sess.SetDisconnectGuard(func() {
		s.markOffline(roomID, participantID)
	})

	if _, err := s.appendSystemMessage(ctx, roomID, now, fmt.Sprintf("%s joined the room", name)); err != nil {
		// The join must not half-apply: take the participant back out.
		if derr := st.DeleteParticipant(ctx, roomID, participantID); derr != nil {
			l.Error().Err(derr).Str(log.FieldRoomID, roomID).Msg("failed to roll back participant after join failure")
		}
		sess.SetDisconnectGuard(nil)
		return "", err
	}

	if err := st.TouchRoom(ctx, roomID, now); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to update last activity")
	}

	sess.SetInRoom(roomID, participantID, name)

	audit.LogWithDetail(ctx, audit.ActionJoinRoom, roomID, participantID, name, "participant joined")
	s.publishRoomEvent(ctx, pubsub.EventParticipantJoined, roomID, pubsub.ParticipantPayload{
		RoomID:        roomID,
		ParticipantID: participantID,
		DisplayName:   name,
		Online:        true,
	})
	s.notifyRoom(ctx, roomID)
	s.notifyCatalog(ctx)

	return participantID, nil
}

// markOffline is the disconnect-triggered write: flip the online flag,
// keep the record.
func (s *roomSyncService) markOffline(roomID, participantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundWriteTimeout)
	defer cancel()

	l := log.L()
	if err := s.treeStore().SetParticipantOnline(ctx, roomID, participantID, false); err != nil {
		l.Error().Err(err).
			Str(log.FieldRoomID, roomID).
			Str(log.FieldParticipantID, participantID).
			Msg("failed to mark participant offline")
		return
	}
	l.Info().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldParticipantID, participantID).
		Msg("participant marked offline on disconnect")

	s.publishRoomEvent(ctx, pubsub.EventPresenceChanged, roomID, pubsub.ParticipantPayload{
		RoomID:        roomID,
		ParticipantID: participantID,
		Online:        false,
	})
	s.notifyRoom(ctx, roomID)
}

func (s *roomSyncService) LeaveRoom(ctx context.Context, sess *domain.Session) error {
	l := log.Ctx(ctx)

	roomID, participantID, name, ok := sess.Current()
	if !ok {
		return ErrNotInRoom
	}

	sess.CancelTimers()

	st := s.treeStore()
	now := s.clock.Now()

	// The leave message goes first so readers never see a departure
	// without its system message. A failed message write still lets the
	// removal proceed.
	if _, err := s.appendSystemMessage(ctx, roomID, now, fmt.Sprintf("%s left the room", name)); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to write leave message")
	}

	if err := st.DeleteParticipant(ctx, roomID, participantID); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to remove participant")
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if err := st.TouchRoom(ctx, roomID, now); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to update last activity")
	}

	sess.Clear()

	audit.LogWithDetail(ctx, audit.ActionLeaveRoom, roomID, participantID, name, "participant left")
	s.publishRoomEvent(ctx, pubsub.EventParticipantLeft, roomID, pubsub.ParticipantPayload{
		RoomID:        roomID,
		ParticipantID: participantID,
		DisplayName:   name,
	})
	s.notifyRoom(ctx, roomID)
	s.notifyCatalog(ctx)

	return nil
}

func (s *roomSyncService) SendMessage(ctx context.Context, sess *domain.Session, content string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyContent
	}

	roomID, participantID, name, ok := sess.Current()
	if !ok {
		return nil, ErrNotInRoom
	}

	st := s.treeStore()
	now := s.clock.Now()

	seq, err := st.NextMessageSeq(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	msg := &domain.Message{
		ID:        s.ids.MessageID(seq),
		Seq:       seq,
		Sender:    name,
		SenderUID: participantID,
		Time:      domain.ClockTime(now),
		Timestamp: now.UnixMilli(),
		Content:   trimmed,
		Kind:      domain.MessageKindUser,
	}
	if err := st.AppendMessage(ctx, roomID, msg); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to append message")
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if err := st.TouchRoom(ctx, roomID, now); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to update last activity")
	}
	if s.archive != nil {
		_ = s.archive.SaveMessage(ctx, roomID, msg)
	}

	audit.Log(ctx, audit.ActionSendMessage, roomID, participantID, "message sent")
	s.publishRoomEvent(ctx, pubsub.EventMessageAdded, roomID, pubsub.MessagePayload{
		RoomID:    roomID,
		MessageID: msg.ID,
		Kind:      string(msg.Kind),
	})
	s.notifyRoom(ctx, roomID)
	// Last-activity changed, so lobby views need a fresh catalog too.
	s.notifyCatalog(ctx)

	if question, ok := domain.AssistantQuestion(trimmed); ok {
		s.scheduleAssistantReply(sess, roomID, question)
	}

	return msg, nil
}

// scheduleAssistantReply arms a delayed reply tied to the session.
// Leaving the room stops the timer, so a departed sender produces no
// ghost reply.
func (s *roomSyncService) scheduleAssistantReply(sess *domain.Session, roomID, question string) {
	var timer *time.Timer
	timer = time.AfterFunc(s.replyDelay, func() {
		defer sess.ReleaseTimer(timer)
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		s.deliverAssistantReply(ctx, roomID, question)
	})
	sess.TrackTimer(timer)
}

func (s *roomSyncService) deliverAssistantReply(ctx context.Context, roomID, question string) {
	l := log.L().With().Str(log.FieldRoomID, roomID).Logger()

	reply := s.responder.Respond(ctx, question)
	if !reply.Success {
		l.Warn().Msg("assistant responder degraded to fallback text")
	}

	st := s.treeStore()
	now := s.clock.Now()

	seq, err := st.NextMessageSeq(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Msg("failed to issue seq for assistant reply")
		return
	}
	msg := &domain.Message{
		ID:        s.ids.MessageID(seq),
		Seq:       seq,
		Sender:    domain.SenderAssistant,
		SenderUID: domain.SenderUIDAssistant,
		Time:      domain.ClockTime(now),
		Timestamp: now.UnixMilli(),
		Content:   reply.Text,
		Kind:      domain.MessageKindAssistant,
	}
	if err := st.AppendMessage(ctx, roomID, msg); err != nil {
		l.Error().Err(err).Msg("failed to append assistant reply")
		return
	}
	if err := st.TouchRoom(ctx, roomID, now); err != nil {
		l.Warn().Err(err).Msg("failed to update last activity")
	}
	if s.archive != nil {
		_ = s.archive.SaveMessage(ctx, roomID, msg)
	}

	s.publishRoomEvent(ctx, pubsub.EventMessageAdded, roomID, pubsub.MessagePayload{
		RoomID:    roomID,
		MessageID: msg.ID,
		Kind:      string(msg.Kind),
	})
	s.notifyRoom(ctx, roomID)
	s.notifyCatalog(ctx)
}

func (s *roomSyncService) HandleDisconnect(ctx context.Context, sess *domain.Session) {
	sess.CancelTimers()
	sess.FireDisconnectGuard()
	sess.Clear()
}

func (s *roomSyncService) appendSystemMessage(ctx context.Context, roomID string, now time.Time, content string) (*domain.Message, error) {
	st := s.treeStore()

	seq, err := st.NextMessageSeq(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue message seq: %w", err)
	}
	msg := &domain.Message{
		ID:        s.ids.MessageID(seq),
		Seq:       seq,
		Sender:    domain.SenderSystem,
		SenderUID: domain.SenderUIDSystem,
		Time:      domain.ClockTime(now),
		Timestamp: now.UnixMilli(),
		Content:   content,
		Kind:      domain.MessageKindSystem,
	}
	if err := st.AppendMessage(ctx, roomID, msg); err != nil {
		return nil, fmt.Errorf("failed to append system message: %w", err)
	}
	if s.archive != nil {
		_ = s.archive.SaveMessage(ctx, roomID, msg)
	}

	s.publishRoomEvent(ctx, pubsub.EventMessageAdded, roomID, pubsub.MessagePayload{
		RoomID:    roomID,
		MessageID: msg.ID,
		Kind:      string(msg.Kind),
	})
	return msg, nil
}
