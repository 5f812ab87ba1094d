package service

import (
	"time"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/ident"
)

// DefaultRooms builds the three seed rooms written when the catalog is
// empty. Welcome messages are back-dated so seeded rooms look lived-in.
func DefaultRooms(clock ident.Clock) domain.Catalog {
	now := clock.Now()

	hourAgo := now.Add(-time.Hour)
	halfHourAgo := now.Add(-30 * time.Minute)

	return domain.Catalog{
		"math-study-group": {
			ID:           "math-study-group",
			Name:         "Math Study Group",
			Description:  "Working on calculus problems and derivatives",
			Subject:      "Mathematics",
			Capacity:     8,
			CreatedAt:    now.UnixMilli(),
			LastActivity: now.UnixMilli(),
			Participants: map[string]domain.Participant{},
			Messages: []domain.Message{
				{
					ID:        "welcome",
					Seq:       1,
					Sender:    domain.SenderSystem,
					SenderUID: domain.SenderUIDSystem,
					Time:      domain.ClockTime(hourAgo),
					Timestamp: hourAgo.UnixMilli(),
					Content:   "Welcome to the Math Study Group! Feel free to ask questions.",
					Kind:      domain.MessageKindSystem,
				},
			},
		},
		"physics-lab": {
			ID:           "physics-lab",
			Name:         "Physics Lab",
			Description:  "Discussing mechanics and thermodynamics",
			Subject:      "Physics",
			Capacity:     6,
			CreatedAt:    now.UnixMilli(),
			LastActivity: now.UnixMilli(),
			Participants: map[string]domain.Participant{},
			Messages: []domain.Message{
				{
					ID:        "intro",
					Seq:       1,
					Sender:    domain.SenderSystem,
					SenderUID: domain.SenderUIDSystem,
					Time:      domain.ClockTime(halfHourAgo),
					Timestamp: halfHourAgo.UnixMilli(),
					Content:   "Welcome to the Physics Lab! Discuss mechanics and thermodynamics here.",
					Kind:      domain.MessageKindSystem,
				},
			},
		},
		"computer-science": {
			ID:           "computer-science",
			Name:         "CS Study Hall",
			Description:  "Programming, algorithms, and data structures",
			Subject:      "Computer Science",
			Capacity:     10,
			CreatedAt:    now.UnixMilli(),
			LastActivity: now.UnixMilli(),
			Participants: map[string]domain.Participant{},
			Messages:     []domain.Message{},
		},
	}
}
