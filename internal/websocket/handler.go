package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"chathub/internal/changefeed"
	"chathub/internal/messaging/service"
	"chathub/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket chat sessions

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// allow all origins for development purpose; can restrict later
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated requests into live chat sessions.
type Handler struct {
	messages service.MessageService
	rooms    service.RoomService
	feed     *changefeed.Feed
	pageSize int
	logger   *slog.Logger
}

func NewHandler(messages service.MessageService, rooms service.RoomService, feed *changefeed.Feed, pageSize int, logger *slog.Logger) *Handler {
	return &Handler{
		messages: messages,
		rooms:    rooms,
		feed:     feed,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Serve handles GET /api/chat/rooms/:id/ws
func (h *Handler) Serve(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	roomID := c.Param("id")

	// Reject non-participants before paying for the upgrade.
	if _, err := h.rooms.GetRoom(c.Request.Context(), roomID, userID.(string)); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrForbidden):
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade to WebSocket"})
		return
	}

	subscribe := func(ctx context.Context) session.Subscription {
		return h.feed.Subscribe(ctx, changefeed.MessagesInRoom(roomID), changefeed.TableMessages)
	}
	controller := session.NewController(roomID, userID.(string), h.messages, subscribe, h.pageSize, h.logger)

	// The session outlives the upgrade request, so it cannot hang off
	// the request context.
	ctx := context.Background()
	if err := controller.Start(ctx); err != nil {
		h.logger.Warn("failed to start chat session", "room_id", roomID, "error", err)
		controller.Close()
		conn.Close()
		return
	}

	client := NewClient(conn, controller, h.logger)
	go client.WritePump()
	go client.ReadPump(ctx)
}
