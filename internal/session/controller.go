package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chathub/internal/changefeed"
	"chathub/internal/messaging/models"
)

// ErrSessionBusy is returned when a command arrives while a previous
// load or send is still in flight.
var ErrSessionBusy = errors.New("chat session is busy")

type State string

const (
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateLoadingMore State = "loading_more"
	StateSending     State = "sending"
	StateClosed      State = "closed"
)

// MessageStore is the slice of the message service a session needs.
type MessageStore interface {
	Send(ctx context.Context, roomID, senderID, content string) (*models.Message, error)
	Edit(ctx context.Context, messageID, editorID, newContent string) (*models.Message, error)
	Delete(ctx context.Context, messageID, requesterID string) error
	Page(ctx context.Context, roomID, userID string, before *time.Time, limit int) ([]models.Message, bool, error)
}

// Subscription is the scoped change-feed handle a session holds.
type Subscription interface {
	Events() <-chan changefeed.Event
	Close()
}

// SubscribeFunc opens the session's single messages subscription,
// already filtered to the session's room.
type SubscribeFunc func(ctx context.Context) Subscription

type UpdateType string

const (
	UpdateHistory        UpdateType = "history"
	UpdateMessage        UpdateType = "message"
	UpdateMessageEdited  UpdateType = "message_updated"
	UpdateMessageDeleted UpdateType = "message_deleted"
)

// Update is one frame pushed to the session's client.
type Update struct {
	Type      UpdateType       `json:"type"`
	Messages  []models.Message `json:"messages,omitempty"`
	Message   *models.Message  `json:"message,omitempty"`
	DeletedID string           `json:"deleted_id,omitempty"`
	HasMore   bool             `json:"has_more"`
	// Prepended is the number of rows added above the viewport by a
	// history load. The client offsets its scroll position by the
	// rendered height of these rows so the view does not jump.
	Prepended    int  `json:"prepended,omitempty"`
	FollowBottom bool `json:"follow_bottom"`
}

// Controller drives one chat session: history load, live change-feed
// updates, backward pagination and send/edit/delete, with the state
// machine Loading -> Ready -> (LoadingMore | Sending) -> Ready.
type Controller struct {
	roomID    string
	userID    string
	pageSize  int
	store     MessageStore
	subscribe SubscribeFunc
	logger    *slog.Logger

	mu             sync.Mutex
	state          State
	hasMore        bool
	viewingHistory bool
	timeline       *Timeline
	sub            Subscription

	updates   chan Update
	done      chan struct{}
	closeOnce sync.Once
}

func NewController(roomID, userID string, store MessageStore, subscribe SubscribeFunc, pageSize int, logger *slog.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Controller{
		roomID:    roomID,
		userID:    userID,
		pageSize:  pageSize,
		store:     store,
		subscribe: subscribe,
		logger:    logger,
		state:     StateLoading,
		timeline:  NewTimeline(),
		updates:   make(chan Update, 32),
		done:      make(chan struct{}),
	}
}

// Updates is the stream of frames for the client.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Done is closed when the session ends; readers of Updates select on
// it to stop draining.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// emit never outlives the session: a frame is dropped rather than
// blocking a closing controller.
func (c *Controller) emit(update Update) {
	select {
	case c.updates <- update:
	case <-c.done:
	}
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start subscribes to the room's change feed and loads the most recent
// page of history. The subscription is opened before the read so no
// insert can slip between them; overlap is absorbed by the timeline's
// dedup. On failure the subscription is released before returning.
func (c *Controller) Start(ctx context.Context) error {
	sub := c.subscribe(ctx)

	messages, hasMore, err := c.store.Page(ctx, c.roomID, c.userID, nil, c.pageSize)
	if err != nil {
		sub.Close()
		return err
	}

	c.mu.Lock()
	c.sub = sub
	for _, msg := range messages {
		c.timeline.Add(msg)
	}
	c.hasMore = hasMore
	c.state = StateReady
	window := c.timeline.Messages()
	c.mu.Unlock()

	c.emit(Update{
		Type:         UpdateHistory,
		Messages:     window,
		HasMore:      hasMore,
		FollowBottom: true,
	})

	go c.run()
	return nil
}

// LoadMore fetches the page of history immediately preceding the
// oldest loaded message and prepends it. A failed load leaves hasMore
// untouched so the user can retry.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrSessionBusy
	}
	before := c.timeline.OldestLoaded()
	if before == nil || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoadingMore
	c.viewingHistory = true
	c.mu.Unlock()

	messages, hasMore, err := c.store.Page(ctx, c.roomID, c.userID, before, c.pageSize)

	c.mu.Lock()
	c.state = StateReady
	if err != nil {
		c.mu.Unlock()
		return err
	}
	prepended := c.timeline.Prepend(messages)
	c.hasMore = hasMore
	c.mu.Unlock()

	c.emit(Update{
		Type:      UpdateHistory,
		Messages:  messages,
		HasMore:   hasMore,
		Prepended: prepended,
	})
	return nil
}

// Send persists the message and appends it optimistically; the
// change-feed echo of the same row is dropped by id. On failure the
// typed draft stays with the client.
func (c *Controller) Send(ctx context.Context, content string) error {
	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrSessionBusy
	}
	c.state = StateSending
	c.mu.Unlock()

	message, err := c.store.Send(ctx, c.roomID, c.userID, content)

	c.mu.Lock()
	c.state = StateReady
	if err != nil {
		c.mu.Unlock()
		return err
	}
	added := c.timeline.Add(*message)
	c.viewingHistory = false
	c.mu.Unlock()

	if added {
		c.emit(Update{
			Type:         UpdateMessage,
			Message:      message,
			FollowBottom: true,
		})
	}
	return nil
}

// Edit rewrites one of the caller's messages. The local window is
// patched immediately; the echo event is a no-op because the content
// already matches.
func (c *Controller) Edit(ctx context.Context, messageID, content string) error {
	message, err := c.store.Edit(ctx, messageID, c.userID, content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	changed := c.timeline.SetContent(message.ID, message.Content)
	c.mu.Unlock()

	if changed {
		c.emit(Update{Type: UpdateMessageEdited, Message: message})
	}
	return nil
}

// Delete removes one of the caller's messages.
func (c *Controller) Delete(ctx context.Context, messageID string) error {
	if err := c.store.Delete(ctx, messageID, c.userID); err != nil {
		return err
	}

	c.mu.Lock()
	removed := c.timeline.Remove(messageID)
	c.mu.Unlock()

	if removed {
		c.emit(Update{Type: UpdateMessageDeleted, DeletedID: messageID})
	}
	return nil
}

// SetViewingHistory records whether the user has scrolled away from
// the bottom; while true, incoming messages do not pull the view down.
func (c *Controller) SetViewingHistory(viewing bool) {
	c.mu.Lock()
	c.viewingHistory = viewing
	c.mu.Unlock()
}

// Close ends the session and releases the change-feed subscription.
// It is safe on every teardown path, including before Start finished.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		sub := c.sub
		c.mu.Unlock()

		close(c.done)
		if sub != nil {
			sub.Close()
		}
	})
}

// run applies change-feed events to the timeline until the
// subscription is closed.
func (c *Controller) run() {
	for event := range c.sub.Events() {
		c.handleEvent(event)
	}
}

func (c *Controller) handleEvent(event changefeed.Event) {
	var message models.Message
	if err := event.Decode(&message); err != nil {
		c.logger.Warn("dropping undecodable message event", "room_id", c.roomID, "error", err)
		return
	}

	switch event.Op {
	case changefeed.OpInsert:
		c.mu.Lock()
		added := c.timeline.Add(message)
		follow := !c.viewingHistory
		c.mu.Unlock()
		if added {
			c.emit(Update{Type: UpdateMessage, Message: &message, FollowBottom: follow})
		}
	case changefeed.OpUpdate:
		c.mu.Lock()
		changed := c.timeline.SetContent(message.ID, message.Content)
		c.mu.Unlock()
		if changed {
			c.emit(Update{Type: UpdateMessageEdited, Message: &message})
		}
	case changefeed.OpDelete:
		c.mu.Lock()
		removed := c.timeline.Remove(message.ID)
		c.mu.Unlock()
		if removed {
			c.emit(Update{Type: UpdateMessageDeleted, DeletedID: message.ID})
		}
	}
}
