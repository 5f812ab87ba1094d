package domain

// RoomModel is the GORM model for the archived rooms table.
type RoomModel struct {
	ID           string `gorm:"type:varchar(64);primaryKey"`
	Name         string `gorm:"type:varchar(200);not null"`
	Description  string `gorm:"type:text"`
	Subject      string `gorm:"type:varchar(100);index"`
	Capacity     int    `gorm:"default:8"`
	CreatedAt    int64
	LastActivity int64
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// MessageModel is the GORM model for the archived messages table.
type MessageModel struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	RoomID    string `gorm:"type:varchar(64);index;not null"`
	Seq       int64  `gorm:"index"`
	Sender    string `gorm:"type:varchar(100)"`
	SenderUID string `gorm:"type:varchar(64)"`
	Kind      string `gorm:"type:varchar(16)"`
	Content   string `gorm:"type:text"`
	Timestamp int64
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// RoomToModel converts a domain Room to its archive model (metadata only,
// sub-trees are archived separately).
func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Subject:      r.Subject,
		Capacity:     r.Capacity,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}

// MessageToModel converts a domain Message to its archive model.
func MessageToModel(roomID string, m *Message) *MessageModel {
	return &MessageModel{
		ID:        m.ID,
		RoomID:    roomID,
		Seq:       m.Seq,
		Sender:    m.Sender,
		SenderUID: m.SenderUID,
		Kind:      string(m.Kind),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

// ToDomain converts an archived message back to a domain Message.
func (m *MessageModel) ToDomain() Message {
	return Message{
		ID:        m.ID,
		Seq:       m.Seq,
		Sender:    m.Sender,
		SenderUID: m.SenderUID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Kind:      MessageKind(m.Kind),
	}
}
