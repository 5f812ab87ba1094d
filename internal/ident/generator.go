package ident

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Generator issues opaque ids for rooms, participants, and messages.
//
// Room and participant ids combine a millisecond timestamp with a random
// base-36 suffix. Message ids additionally embed the store-issued per-room
// sequence number, so chronological order is recoverable from the id itself
// rather than from any store key-ordering guarantee.
type Generator interface {
	RoomID() string
	ParticipantID() string
	MessageID(seq int64) string
}

// NewGenerator creates a timestamp-based id generator.
func NewGenerator(clock Clock) Generator {
	return &timestampGenerator{clock: clock}
}

type timestampGenerator struct {
	clock Clock
}

func (g *timestampGenerator) RoomID() string {
	return fmt.Sprintf("room_%d_%s", g.clock.Now().UnixMilli(), randSuffix(9))
}

func (g *timestampGenerator) ParticipantID() string {
	return fmt.Sprintf("user_%d_%s", g.clock.Now().UnixMilli(), randSuffix(9))
}

func (g *timestampGenerator) MessageID(seq int64) string {
	return fmt.Sprintf("msg_%06d_%d_%s", seq, g.clock.Now().UnixMilli(), randSuffix(9))
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randSuffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}
