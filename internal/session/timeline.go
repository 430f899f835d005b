package session

import (
	"time"

	"chathub/internal/messaging/models"
)

// Timeline is the session's local view of a room: messages ordered by
// (created_at, id), deduplicated by id. It reconciles the optimistic
// append done at send time with the change-feed echo of the same row.
type Timeline struct {
	messages []models.Message
	byID     map[string]bool
}

func NewTimeline() *Timeline {
	return &Timeline{byID: make(map[string]bool)}
}

// Add inserts a message at its ordered position. Returns false when
// the id is already present, which makes replayed change events and
// send echoes no-ops.
func (t *Timeline) Add(msg models.Message) bool {
	if t.byID[msg.ID] {
		return false
	}
	t.byID[msg.ID] = true

	// New messages almost always belong at the end.
	i := len(t.messages)
	for i > 0 && after(&t.messages[i-1], &msg) {
		i--
	}
	t.messages = append(t.messages, models.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// Prepend merges a page of older history in front of the current
// window, returning how many rows were actually new. The count is the
// scroll anchor: the client offsets its viewport by the height of that
// many rows so loading history never jumps the reader.
func (t *Timeline) Prepend(msgs []models.Message) int {
	added := 0
	for _, msg := range msgs {
		if t.Add(msg) {
			added++
		}
	}
	return added
}

// SetContent rewrites a message's content in place. Returns false when
// the message is absent or already carries that content, so the echo
// of a locally applied edit is a no-op.
func (t *Timeline) SetContent(id, content string) bool {
	for i := range t.messages {
		if t.messages[i].ID == id {
			if t.messages[i].Content == content {
				return false
			}
			t.messages[i].Content = content
			return true
		}
	}
	return false
}

// Remove drops a message from the window.
func (t *Timeline) Remove(id string) bool {
	if !t.byID[id] {
		return false
	}
	delete(t.byID, id)
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return true
		}
	}
	return false
}

// OldestLoaded is the pagination cursor: the created_at of the first
// message in the window, or nil when the window is empty.
func (t *Timeline) OldestLoaded() *time.Time {
	if len(t.messages) == 0 {
		return nil
	}
	ts := t.messages[0].CreatedAt
	return &ts
}

// Messages returns the ordered window. The slice is a copy.
func (t *Timeline) Messages() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	return len(t.messages)
}

// after reports whether a sorts after b in (created_at, id) order.
func after(a, b *models.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
