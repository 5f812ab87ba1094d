package ident

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time {
	return c.now
}

func TestGeneratorFormats(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	g := NewGenerator(stubClock{now: at})
	millis := fmt.Sprintf("%d", at.UnixMilli())

	roomID := g.RoomID()
	require.True(t, strings.HasPrefix(roomID, "room_"+millis+"_"))
	assert.Len(t, roomID, len("room_")+len(millis)+1+9)

	userID := g.ParticipantID()
	require.True(t, strings.HasPrefix(userID, "user_"+millis+"_"))

	msgID := g.MessageID(42)
	require.True(t, strings.HasPrefix(msgID, "msg_000042_"+millis+"_"))
}

func TestMessageIDsSortBySequence(t *testing.T) {
	g := NewGenerator(stubClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)})

	// The zero-padded seq prefix makes lexical order follow sequence
	// order even with identical timestamps.
	a := g.MessageID(7)
	b := g.MessageID(31)
	c := g.MessageID(120)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestGeneratorSuffixIsBase36(t *testing.T) {
	g := NewGenerator(stubClock{now: time.Now()})

	id := g.ParticipantID()
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	suffix := parts[2]
	require.Len(t, suffix, 9)
	for _, r := range suffix {
		assert.Contains(t, base36, string(r))
	}
}
