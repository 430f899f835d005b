package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room is a chat conversation with a fixed participant set. Name and
// membership are immutable after creation; UpdatedAt carries the
// last-activity semantics used for conversation-list ordering.
type Room struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Participants []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

// BeforeCreate hook to set UUID before creating a Room
func (room *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	return
}

func (Room) TableName() string {
	return "rooms"
}

// RoomParticipant joins a user into a room. Rows are inserted together
// with the room and never updated afterwards.
type RoomParticipant struct {
	RoomID    string    `gorm:"primaryKey;type:uuid" json:"room_id"`
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Associations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (RoomParticipant) TableName() string {
	return "room_participants"
}
