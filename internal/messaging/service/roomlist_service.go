package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"chathub/internal/changefeed"
	"chathub/internal/messaging/display"
	"chathub/internal/messaging/dto"
	"chathub/internal/messaging/repository"
)

// RoomListService computes the conversation list: every room the user
// participates in, ordered by latest activity.
type RoomListService interface {
	List(ctx context.Context, userID string) ([]dto.RoomListEntry, error)
	Watch(ctx context.Context, userID string) (<-chan []dto.RoomListEntry, func())
}

// listSubscription is the change-feed handle a watcher holds.
type listSubscription interface {
	Events() <-chan changefeed.Event
	Close()
}

type roomListService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	subscribe   func(ctx context.Context) listSubscription
	logger      *slog.Logger
	now         func() time.Time
}

func NewRoomListService(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository, feed *changefeed.Feed, logger *slog.Logger) RoomListService {
	return &roomListService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		subscribe: func(ctx context.Context) listSubscription {
			return feed.Subscribe(ctx, nil, changefeed.TableRooms, changefeed.TableMessages)
		},
		logger: logger,
		now:    time.Now,
	}
}

// List sorts the user's rooms descending by latest activity, which is
// the newer of the last message's created_at and the room's own
// updated_at. Rooms with no messages fall back to updated_at.
func (s *roomListService) List(ctx context.Context, userID string) ([]dto.RoomListEntry, error) {
	rooms, err := s.roomRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roomIDs := make([]string, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.ID)
	}
	latest, err := s.messageRepo.LatestPerRoom(ctx, roomIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries := make([]dto.RoomListEntry, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		activity := room.UpdatedAt
		var preview *dto.LastMessagePreview
		if msg, ok := latest[room.ID]; ok {
			if msg.CreatedAt.After(activity) {
				activity = msg.CreatedAt
			}
			preview = &dto.LastMessagePreview{Content: msg.Content}
			if msg.Sender != nil {
				preview.SenderFirstName = msg.Sender.FirstName
			}
		}
		entries = append(entries, dto.RoomListEntry{
			ID:             room.ID,
			DisplayName:    display.RoomName(room, userID),
			LatestActivity: activity,
			Timestamp:      display.FormatTimestamp(activity, now),
			LastMessage:    preview,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LatestActivity.After(entries[j].LatestActivity)
	})
	return entries, nil
}

// Watch pushes a freshly computed list whenever a rooms or messages
// change event touches one of the user's rooms. It holds one broad
// subscription over both tables; the returned release func must be
// called on teardown.
func (s *roomListService) Watch(ctx context.Context, userID string) (<-chan []dto.RoomListEntry, func()) {
	sub := s.subscribe(ctx)
	out := make(chan []dto.RoomListEntry, 1)

	go func() {
		defer close(out)

		known := s.push(ctx, userID, out, nil)
		for event := range sub.Events() {
			if !concernsUser(event, known) {
				continue
			}
			known = s.push(ctx, userID, out, known)
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out, sub.Close
}

// push recomputes the list and sends it, returning the membership set
// used to filter later events. On failure the previous set is kept so
// a transient store error does not blind the watcher.
func (s *roomListService) push(ctx context.Context, userID string, out chan<- []dto.RoomListEntry, prev map[string]bool) map[string]bool {
	entries, err := s.List(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to refresh room list", "user_id", userID, "error", err)
		return prev
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}

	select {
	case out <- entries:
	case <-ctx.Done():
	}
	return known
}

// concernsUser filters the broad two-table subscription down to events
// that can change this user's list. Room inserts always pass, since
// the user may have just been added to a room not yet in the set.
func concernsUser(event changefeed.Event, known map[string]bool) bool {
	if event.Table == changefeed.TableRooms {
		return true
	}
	var row struct {
		RoomID string `json:"room_id"`
	}
	if err := event.Decode(&row); err != nil {
		return false
	}
	return known[row.RoomID]
}
