package handler

import (
	"errors"
	"io"
	"net/http"

	"chathub/internal/messaging/dto"
	"chathub/internal/messaging/service"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService service.RoomService
	listService service.RoomListService
}

func NewRoomHandler(roomService service.RoomService, listService service.RoomListService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		listService: listService,
	}
}

// RegisterRoutes registers room-related routes
func (h *RoomHandler) RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	{
		rooms.POST("", h.Create)        // Create a room
		rooms.GET("", h.List)           // Conversation list, latest activity first
		rooms.GET("/stream", h.Stream)  // Live conversation list (SSE)
		rooms.GET("/:id", h.GetByID)    // One room with its participants
	}
}

// Create creates a new chat room
// POST /api/chat/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participants data"})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID.(string), req.Name, req.Participants)
	if err != nil {
		if errors.Is(err, service.ErrInvalidParticipants) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// List returns the caller's conversation list
// GET /api/chat/rooms
func (h *RoomHandler) List(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	entries, err := h.listService.List(c.Request.Context(), userID.(string))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": entries})
}

// Stream pushes the conversation list on every relevant change event
// GET /api/chat/rooms/stream
func (h *RoomHandler) Stream(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	lists, release := h.listService.Watch(c.Request.Context(), userID.(string))
	defer release()

	c.Stream(func(w io.Writer) bool {
		entries, ok := <-lists
		if !ok {
			return false
		}
		c.SSEvent("rooms", entries)
		return true
	})
}

// GetByID returns one room the caller participates in
// GET /api/chat/rooms/:id
func (h *RoomHandler) GetByID(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), c.Param("id"), userID.(string))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}
