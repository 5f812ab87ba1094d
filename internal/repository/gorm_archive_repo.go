package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
)

// GormArchiveRepository implements ArchiveRepository using GORM.
type GormArchiveRepository struct {
	db *gorm.DB
}

// NewGormArchiveRepository creates a new GORM-based archive repository.
func NewGormArchiveRepository(db *gorm.DB) *GormArchiveRepository {
	return &GormArchiveRepository{db: db}
}

// SaveRoom upserts a room's metadata into the archive.
func (r *GormArchiveRepository) SaveRoom(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	model := domain.RoomToModel(room)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, room.ID).Msg("failed to archive room")
		return result.Error
	}
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room archived")
	return nil
}

// SaveMessage appends a message to the archive. Messages are immutable,
// so a conflicting id is silently ignored.
func (r *GormArchiveRepository) SaveMessage(ctx context.Context, roomID string, m *domain.Message) error {
	l := log.Ctx(ctx)

	model := domain.MessageToModel(roomID, m)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldRoomID, roomID).
			Str(log.FieldMessageID, m.ID).
			Msg("failed to archive message")
		return result.Error
	}
	return nil
}

// GetRoomHistory retrieves archived messages for a room in sequence
// order, with pagination.
func (r *GormArchiveRepository) GetRoomHistory(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("room_id = ?", roomID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to count archived messages")
		return nil, 0, err
	}

	var models []domain.MessageModel
	if err := query.Order("seq ASC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load archived messages")
		return nil, 0, err
	}

	messages := make([]domain.Message, len(models))
	for i := range models {
		messages[i] = models[i].ToDomain()
	}

	return messages, int(total), nil
}
