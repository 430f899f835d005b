package dto

import (
	"time"

	"chathub/internal/messaging/models"
)

// CreateRoomRequest for creating a chat room. Participants are the
// *other* members; the server adds the caller itself.
type CreateRoomRequest struct {
	Name         *string  `json:"name"`
	Participants []string `json:"participants" binding:"required"`
}

// RoomResponse for returning a created room
type RoomResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// FromModelToRoomResponse converts a Room model to RoomResponse DTO
func FromModelToRoomResponse(room *models.Room) *RoomResponse {
	name := ""
	if room.Name != nil {
		name = *room.Name
	}
	return &RoomResponse{
		ID:        room.ID,
		Name:      name,
		CreatedAt: room.CreatedAt,
	}
}

// LastMessagePreview is the one-line tail shown under a conversation
type LastMessagePreview struct {
	SenderFirstName string `json:"sender_first_name"`
	Content         string `json:"content"`
}

// RoomListEntry is one row of the conversation list, already sorted by
// latest activity and carrying the rendered timestamp
type RoomListEntry struct {
	ID             string              `json:"id"`
	DisplayName    string              `json:"display_name"`
	LatestActivity time.Time           `json:"latest_activity"`
	Timestamp      string              `json:"timestamp"`
	LastMessage    *LastMessagePreview `json:"last_message,omitempty"`
}
