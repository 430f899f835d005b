package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chathub/internal/changefeed"
	"chathub/internal/messaging/models"

	"gorm.io/gorm"
)

// ErrParticipantInsert marks a room creation that failed on the
// membership rows. The transaction has rolled the room row back with
// them.
var ErrParticipantInsert = errors.New("failed to insert room participants")

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room, participantIDs []string) error
	GetByID(ctx context.Context, roomID string) (*models.Room, error)
	ListByUser(ctx context.Context, userID string) ([]models.Room, error)
	IsParticipant(ctx context.Context, roomID, userID string) (bool, error)
}

type roomRepository struct {
	db     *gorm.DB
	feed   changefeed.Publisher
	logger *slog.Logger
}

func NewRoomRepository(db *gorm.DB, feed changefeed.Publisher, logger *slog.Logger) RoomRepository {
	return &roomRepository{db: db, feed: feed, logger: logger}
}

// Create persists the room and one participant row per member in a
// single transaction. If the participant insert fails the room row is
// rolled back with it, so an orphaned room can never be observed.
func (r *roomRepository) Create(ctx context.Context, room *models.Room, participantIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}

		participants := make([]models.RoomParticipant, 0, len(participantIDs))
		for _, userID := range participantIDs {
			participants = append(participants, models.RoomParticipant{
				RoomID: room.ID,
				UserID: userID,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrParticipantInsert, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The write has committed; a lost event only delays the room list,
	// so log instead of failing the creation.
	if err := r.feed.Publish(ctx, changefeed.TableRooms, changefeed.OpInsert, room); err != nil {
		r.logger.Warn("failed to publish room insert event", "room_id", room.ID, "error", err)
	}
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("id = ?", roomID).
		Preload("Participants").
		Preload("Participants.User").
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListByUser retrieves every room the user participates in, with the
// full participant set (and their users) preloaded.
func (r *roomRepository) ListByUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN room_participants ON room_participants.room_id = rooms.id").
		Where("room_participants.user_id = ?", userID).
		Preload("Participants").
		Preload("Participants.User").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}
