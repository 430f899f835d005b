package repository

import (
	"context"
	"log/slog"
	"time"

	"chathub/internal/changefeed"
	"chathub/internal/messaging/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, messageID string) (*models.Message, error)
	Page(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.Message, error)
	LatestPerRoom(ctx context.Context, roomIDs []string) (map[string]models.Message, error)
}

type messageRepository struct {
	db     *gorm.DB
	feed   changefeed.Publisher
	logger *slog.Logger
}

func NewMessageRepository(db *gorm.DB, feed changefeed.Publisher, logger *slog.Logger) MessageRepository {
	return &messageRepository{db: db, feed: feed, logger: logger}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return err
	}
	r.publish(ctx, changefeed.OpInsert, message)
	return nil
}

func (r *messageRepository) Update(ctx context.Context, message *models.Message) error {
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", message.ID).
		Update("content", message.Content).Error
	if err != nil {
		return err
	}
	r.publish(ctx, changefeed.OpUpdate, message)
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Delete(&models.Message{}, "id = ?", message.ID).Error; err != nil {
		return err
	}
	r.publish(ctx, changefeed.OpDelete, message)
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, messageID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Where("id = ?", messageID).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Page returns up to limit messages ascending by (created_at, id).
// With no cursor it is the newest page of the room; with before set it
// is the page immediately preceding that timestamp. Querying descending
// and reversing in memory is what makes it the *nearest* page of
// history rather than the oldest.
func (r *messageRepository) Page(ctx context.Context, roomID string, before *time.Time, limit int) ([]models.Message, error) {
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("Sender")
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.Message
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LatestPerRoom returns the newest message of each given room. Rooms
// with no messages are absent from the result. DISTINCT ON keeps the
// result at one row per room regardless of history depth.
func (r *messageRepository) LatestPerRoom(ctx context.Context, roomIDs []string) (map[string]models.Message, error) {
	if len(roomIDs) == 0 {
		return map[string]models.Message{}, nil
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Select("DISTINCT ON (room_id) *").
		Where("room_id IN ?", roomIDs).
		Order("room_id, created_at DESC, id DESC").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string]models.Message, len(messages))
	for _, msg := range messages {
		latest[msg.RoomID] = msg
	}
	return latest, nil
}

// publish reports a committed write to the change feed. Delivery is
// best-effort: the row is already durable, so a publish failure is
// logged and the write still succeeds.
func (r *messageRepository) publish(ctx context.Context, op changefeed.Op, message *models.Message) {
	if err := r.feed.Publish(ctx, changefeed.TableMessages, op, message); err != nil {
		r.logger.Warn("failed to publish message change event",
			"message_id", message.ID, "op", string(op), "error", err)
	}
}
