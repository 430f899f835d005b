package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"chathub/internal/session"

	"github.com/gorilla/websocket"
)

const ( // ping pong(2-way heartbeat) to keep connection alive
	WriteWait      = 10 * time.Second    // max time write a message to the peer
	PongWait       = 60 * time.Second    // max time to wait for pong from peer => no pong = no connection
	PingPeriod     = (PongWait * 9) / 10 // ping before the pong window expires
	MaxMessageSize = 4096                // maximum frame size allowed from peer
)

// Command is one inbound frame from the chat client.
type Command struct {
	Type           string `json:"type"` // send | load_more | edit | delete | viewing_history
	Content        string `json:"content,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	ViewingHistory bool   `json:"viewing_history,omitempty"`
}

// Client pumps one WebSocket connection: commands in, session updates
// out. Each connection owns exactly one session controller, torn down
// with the connection.
type Client struct {
	conn       *websocket.Conn
	controller *session.Controller
	logger     *slog.Logger
}

func NewClient(conn *websocket.Conn, controller *session.Controller, logger *slog.Logger) *Client {
	return &Client{
		conn:       conn,
		controller: controller,
		logger:     logger,
	}
}

// ReadPump consumes client commands until the connection drops, then
// closes the session. Runs on the connection's goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.controller.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.writeError("malformed command")
			continue
		}
		if err := c.handle(ctx, cmd); err != nil {
			c.writeError(err.Error())
		}
	}
}

func (c *Client) handle(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case "send":
		return c.controller.Send(ctx, cmd.Content)
	case "load_more":
		return c.controller.LoadMore(ctx)
	case "edit":
		return c.controller.Edit(ctx, cmd.MessageID, cmd.Content)
	case "delete":
		return c.controller.Delete(ctx, cmd.MessageID)
	case "viewing_history":
		c.controller.SetViewingHistory(cmd.ViewingHistory)
		return nil
	default:
		return errors.New("unknown command type")
	}
}

// WritePump forwards session updates to the peer and keeps the
// heartbeat going. Runs on its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case update := <-c.controller.Updates():
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteJSON(update); err != nil {
				return
			}
		case <-c.controller.Done():
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeError(msg string) {
	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	if err := c.conn.WriteJSON(map[string]string{"type": "error", "error": msg}); err != nil {
		c.logger.Warn("failed to write error frame", "error", err)
	}
}
