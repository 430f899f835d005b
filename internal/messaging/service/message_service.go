package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chathub/internal/messaging/models"
	"chathub/internal/messaging/repository"

	"gorm.io/gorm"
)

const DefaultPageSize = 20

type MessageService interface {
	Send(ctx context.Context, roomID, senderID, content string) (*models.Message, error)
	Edit(ctx context.Context, messageID, editorID, newContent string) (*models.Message, error)
	Delete(ctx context.Context, messageID, requesterID string) error
	Page(ctx context.Context, roomID, userID string, before *time.Time, limit int) ([]models.Message, bool, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	limiter     *SenderLimiter
}

func NewMessageService(messageRepo repository.MessageRepository, roomRepo repository.RoomRepository, limiter *SenderLimiter) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		limiter:     limiter,
	}
}

// Send inserts a message with a server-assigned timestamp. The new
// row's created_at is what bumps the room's latest activity; no
// explicit rooms.updated_at write happens here.
func (s *messageService) Send(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if err := s.requireParticipant(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(senderID) {
		return nil, ErrRateLimited
	}

	message := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Edit overwrites a message's content in place. Sender only;
// created_at is untouched so room ordering never shifts.
func (s *messageService) Edit(ctx context.Context, messageID, editorID, newContent string) (*models.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, ErrEmptyContent
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if message.SenderID != editorID {
		return nil, ErrForbidden
	}

	message.Content = newContent
	if err := s.messageRepo.Update(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Delete removes a message permanently. Sender only; no tombstone.
func (s *messageService) Delete(ctx context.Context, messageID, requesterID string) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if message.SenderID != requesterID {
		return ErrForbidden
	}
	return s.messageRepo.Delete(ctx, message)
}

// Page returns up to limit messages ascending, plus whether an older
// page exists. No cursor means the newest page of the room.
func (s *messageService) Page(ctx context.Context, roomID, userID string, before *time.Time, limit int) ([]models.Message, bool, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if err := s.requireParticipant(ctx, roomID, userID); err != nil {
		return nil, false, err
	}

	messages, err := s.messageRepo.Page(ctx, roomID, before, limit)
	if err != nil {
		return nil, false, err
	}
	return messages, len(messages) == limit, nil
}

func (s *messageService) requireParticipant(ctx context.Context, roomID, userID string) error {
	ok, err := s.roomRepo.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
