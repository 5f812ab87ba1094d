package domain

import (
	"sync"
	"time"
)

// SessionState is the per-client room membership state.
type SessionState int

const (
	StateNoRoom SessionState = iota
	StateJoining
	StateInRoom
)

// Session tracks one connected client's view of the world: which room it is
// in, its ephemeral participant identity, the disconnect guard registered at
// join time, and any pending scheduled assistant replies.
type Session struct {
	ClientID string

	mu         sync.Mutex
	state      SessionState
	roomID     string
	userID     string
	userName   string
	joining    map[string]bool
	disconnect func()
	timers     []*time.Timer
}

// NewSession creates a session in the NoRoom state.
func NewSession(clientID string) *Session {
	return &Session{
		ClientID: clientID,
		joining:  make(map[string]bool),
	}
}

// State returns the current membership state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the current room id and participant identity.
// ok is false when the session is not in a room.
func (s *Session) Current() (roomID, userID, userName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInRoom {
		return "", "", "", false
	}
	return s.roomID, s.userID, s.userName, true
}

// BeginJoin marks a join attempt for roomID as in flight. It returns false
// when a join for that room is already in flight, suppressing double-joins
// from repeated taps.
func (s *Session) BeginJoin(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joining[roomID] {
		return false
	}
	s.joining[roomID] = true
	s.state = StateJoining
	return true
}

// EndJoin clears the in-flight marker for roomID. If the join did not
// complete, the session falls back to NoRoom.
func (s *Session) EndJoin(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joining, roomID)
	if s.state == StateJoining {
		s.state = StateNoRoom
	}
}

// SetInRoom commits the local state after all remote writes succeeded.
func (s *Session) SetInRoom(roomID, userID, userName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.joining, roomID)
	s.state = StateInRoom
	s.roomID = roomID
	s.userID = userID
	s.userName = userName
}

// Clear resets the session to NoRoom and drops the disconnect guard.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateNoRoom
	s.roomID = ""
	s.userID = ""
	s.userName = ""
	s.disconnect = nil
}

// SetDisconnectGuard registers the write to run if the client disconnects
// without an explicit leave. It must be registered immediately after the
// participant record is written, before any other remote writes.
func (s *Session) SetDisconnectGuard(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect = fn
}

// FireDisconnectGuard runs and clears the registered disconnect guard.
func (s *Session) FireDisconnectGuard() {
	s.mu.Lock()
	fn := s.disconnect
	s.disconnect = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// TrackTimer records a scheduled assistant reply so it can be cancelled when
// the session leaves the room.
func (s *Session) TrackTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, t)
}

// ReleaseTimer drops a fired timer so the tracked set does not grow for
// the life of a chatty session.
func (s *Session) ReleaseTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tracked := range s.timers {
		if tracked == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// CancelTimers stops all pending scheduled replies.
func (s *Session) CancelTimers() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}
