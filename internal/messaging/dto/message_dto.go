package dto

import (
	"time"

	"chathub/internal/messaging/models"
)

// SendMessageRequest for posting a message to a room
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessageRequest for rewriting a message's content
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageResponse for returning message information
type MessageResponse struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
}

// FromModelToMessageResponse converts a Message model to MessageResponse DTO
func FromModelToMessageResponse(message *models.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:        message.ID,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if message.Sender != nil {
		resp.ProfilePicture = message.Sender.ProfilePicture
	}
	return resp
}

// PagedMessagesResponse for returning one page of room history
type PagedMessagesResponse struct {
	Data    []MessageResponse `json:"data"`
	HasMore bool              `json:"has_more"`
}

// NewPagedMessagesResponse builds the page response, oldest first
func NewPagedMessagesResponse(messages []models.Message, hasMore bool) *PagedMessagesResponse {
	data := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		data = append(data, *FromModelToMessageResponse(&messages[i]))
	}
	return &PagedMessagesResponse{Data: data, HasMore: hasMore}
}
