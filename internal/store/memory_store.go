package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

// memoryStore implements TreeStore in process memory. It backs the
// degraded single-node mode when Redis is unreachable, and tests.
type memoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
	seqs  map[string]int64
}

// NewMemoryStore creates a new in-memory room tree store.
func NewMemoryStore() TreeStore {
	return &memoryStore{
		rooms: make(map[string]*domain.Room),
		seqs:  make(map[string]int64),
	}
}

func (s *memoryStore) ListRooms(ctx context.Context) (domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog := make(domain.Catalog, len(s.rooms))
	for id, room := range s.rooms {
		catalog[id] = *copyRoom(room)
	}
	return catalog, nil
}

func (s *memoryStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *memoryStore) PutRoom(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.storeRoom(room)
	return nil
}

func (s *memoryStore) SeedRooms(ctx context.Context, rooms domain.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range rooms {
		room := rooms[id]
		s.storeRoom(&room)
	}
	return nil
}

// storeRoom installs a copy and advances the seq counter past any
// pre-seeded messages. Callers must hold the write lock.
func (s *memoryStore) storeRoom(room *domain.Room) {
	cp := copyRoom(room)
	s.rooms[cp.ID] = cp

	var maxSeq int64
	for i := range cp.Messages {
		if cp.Messages[i].Seq > maxSeq {
			maxSeq = cp.Messages[i].Seq
		}
	}
	if maxSeq > s.seqs[cp.ID] {
		s.seqs[cp.ID] = maxSeq
	}
}

func (s *memoryStore) PutParticipant(ctx context.Context, roomID string, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Participants == nil {
		room.Participants = make(map[string]domain.Participant)
	}
	room.Participants[p.UID] = *p
	return nil
}

func (s *memoryStore) SetParticipantOnline(ctx context.Context, roomID, participantID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	p, ok := room.Participants[participantID]
	if !ok {
		return nil
	}
	p.Online = online
	room.Participants[participantID] = p
	return nil
}

func (s *memoryStore) DeleteParticipant(ctx context.Context, roomID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	delete(room.Participants, participantID)
	return nil
}

func (s *memoryStore) NextMessageSeq(ctx context.Context, roomID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seqs[roomID]++
	return s.seqs[roomID], nil
}

func (s *memoryStore) AppendMessage(ctx context.Context, roomID string, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.Messages = append(room.Messages, *m)
	sort.SliceStable(room.Messages, func(i, j int) bool {
		return room.Messages[i].Seq < room.Messages[j].Seq
	})
	return nil
}

func (s *memoryStore) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.LastActivity = at.UnixMilli()
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

func copyRoom(room *domain.Room) *domain.Room {
	cp := *room
	cp.Participants = make(map[string]domain.Participant, len(room.Participants))
	for uid, p := range room.Participants {
		cp.Participants[uid] = p
	}
	cp.Messages = make([]domain.Message, len(room.Messages))
	copy(cp.Messages, room.Messages)
	return &cp
}
