package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message content may be edited or hard-deleted by its sender only;
// CreatedAt is set at insert time and never changes, so messages within
// a room stay totally ordered by (created_at, id).
type Message struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID    string    `gorm:"type:uuid;not null;index:idx_messages_room_created,priority:1" json:"room_id"`
	SenderID  string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content   string    `gorm:"not null;type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_room_created,priority:2" json:"created_at"`

	// Associations
	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Room   *Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE;" json:"room,omitempty"`
}

// BeforeCreate hook to set UUID before creating a Message
func (message *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return
}

func (Message) TableName() string {
	return "messages"
}
