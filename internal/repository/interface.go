package repository

import (
	"context"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
)

// ArchiveRepository defines the interface for durable room and message
// archival. The archive is write-through and non-critical: the live room
// tree stays authoritative even when archive writes fail.
type ArchiveRepository interface {
	SaveRoom(ctx context.Context, room *domain.Room) error
	SaveMessage(ctx context.Context, roomID string, m *domain.Message) error
	GetRoomHistory(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int, error)
}
