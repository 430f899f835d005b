package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"chathub/internal/messaging/dto"
	"chathub/internal/messaging/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// RegisterRoutes registers message-related routes
func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	roomMessages := router.Group("/rooms/:id/messages")
	{
		roomMessages.GET("", h.ListByRoom) // One page of room history
		roomMessages.POST("", h.Send)      // Send a message
	}

	messages := router.Group("/messages")
	{
		messages.PUT("/:id", h.Update)    // Edit a message (sender's own)
		messages.DELETE("/:id", h.Delete) // Delete a message (sender's own)
	}
}

// ListByRoom returns one page of history, oldest first. Without a
// `before` cursor it is the newest page; with one, the page
// immediately preceding that timestamp.
// GET /api/chat/rooms/:id/messages?before=<RFC3339Nano>&limit=20
func (h *MessageHandler) ListByRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before timestamp"})
			return
		}
		before = &ts
	}

	limit := service.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	messages, hasMore, err := h.messageService.Page(c.Request.Context(), c.Param("id"), userID.(string), before, limit)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, dto.NewPagedMessagesResponse(messages, hasMore))
}

// Send posts a message to a room
// POST /api/chat/rooms/:id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), c.Param("id"), userID.(string), req.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromModelToMessageResponse(message))
}

// Update rewrites a message's content
// PUT /api/chat/messages/:id
func (h *MessageHandler) Update(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Edit(c.Request.Context(), c.Param("id"), userID.(string), req.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromModelToMessageResponse(message))
}

// Delete removes a message permanently
// DELETE /api/chat/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), c.Param("id"), userID.(string)); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrMessageNotFound), errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
