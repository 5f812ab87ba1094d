package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionJoinLifecycle(t *testing.T) {
	s := NewSession("client-1")
	assert.Equal(t, StateNoRoom, s.State())

	assert.True(t, s.BeginJoin("room-a"))
	assert.Equal(t, StateJoining, s.State())
	assert.False(t, s.BeginJoin("room-a"), "second join for the same room is suppressed")

	s.SetInRoom("room-a", "user-1", "Alice")
	roomID, userID, userName, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "room-a", roomID)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "Alice", userName)

	s.Clear()
	_, _, _, ok = s.Current()
	assert.False(t, ok)
	assert.Equal(t, StateNoRoom, s.State())
}

func TestSessionEndJoinRestoresNoRoom(t *testing.T) {
	s := NewSession("client-1")
	assert.True(t, s.BeginJoin("room-a"))

	s.EndJoin("room-a")
	assert.Equal(t, StateNoRoom, s.State())
	assert.True(t, s.BeginJoin("room-a"), "a finished join frees the room for another attempt")
}

func TestSessionDisconnectGuardFiresOnce(t *testing.T) {
	s := NewSession("client-1")

	fired := 0
	s.SetDisconnectGuard(func() { fired++ })
	s.FireDisconnectGuard()
	s.FireDisconnectGuard()
	assert.Equal(t, 1, fired)
}

func TestSessionClearDropsGuard(t *testing.T) {
	s := NewSession("client-1")

	fired := false
	s.SetDisconnectGuard(func() { fired = true })
	s.Clear()
	s.FireDisconnectGuard()
	assert.False(t, fired, "an explicit leave replaces the disconnect write")
}

func TestSessionCancelTimers(t *testing.T) {
	s := NewSession("client-1")

	fired := make(chan struct{}, 1)
	s.TrackTimer(time.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} }))
	s.CancelTimers()

	select {
	case <-fired:
		t.Fatal("cancelled timer still fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestSessionReleaseTimerPrunesTracked(t *testing.T) {
	s := NewSession("client-1")

	first := time.NewTimer(time.Hour)
	defer first.Stop()
	second := time.NewTimer(time.Hour)
	defer second.Stop()
	s.TrackTimer(first)
	s.TrackTimer(second)

	s.ReleaseTimer(first)
	s.mu.Lock()
	remaining := len(s.timers)
	s.mu.Unlock()
	assert.Equal(t, 1, remaining)

	s.ReleaseTimer(first)
	s.ReleaseTimer(second)
	s.mu.Lock()
	remaining = len(s.timers)
	s.mu.Unlock()
	assert.Equal(t, 0, remaining)
}
