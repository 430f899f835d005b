package service

import (
	"context"
	"errors"

	"chathub/internal/messaging/display"
	"chathub/internal/messaging/dto"
	"chathub/internal/messaging/models"
	"chathub/internal/messaging/repository"

	"gorm.io/gorm"
)

var (
	ErrInvalidParticipants = errors.New("participant list is empty or contains unknown users")
	ErrPartialRoomCreation = errors.New("room creation failed while adding participants")
	ErrEmptyContent        = errors.New("message content is empty")
	ErrForbidden           = errors.New("only the sender may modify a message")
	ErrRoomNotFound        = errors.New("room not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrRateLimited         = errors.New("sending messages too fast")
)

type RoomService interface {
	CreateRoom(ctx context.Context, callerID string, name *string, participantIDs []string) (*dto.RoomResponse, error)
	GetRoom(ctx context.Context, roomID, callerID string) (*models.Room, error)
}

type roomService struct {
	roomRepo repository.RoomRepository
	userRepo repository.UserRepository
}

func NewRoomService(roomRepo repository.RoomRepository, userRepo repository.UserRepository) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		userRepo: userRepo,
	}
}

// CreateRoom validates the participant set, derives the display name
// when none was supplied and persists room plus membership atomically.
// The caller is the implicit first participant and must not appear in
// participantIDs.
func (s *roomService) CreateRoom(ctx context.Context, callerID string, name *string, participantIDs []string) (*dto.RoomResponse, error) {
	members := normalizeMembers(callerID, participantIDs)
	// members always contains the caller; anything less than two means
	// nobody else was named
	if len(members) < 2 {
		return nil, ErrInvalidParticipants
	}

	users, err := s.userRepo.GetByIDs(ctx, members)
	if err != nil {
		return nil, err
	}
	// Exactly one row per id, or the set contains an unknown user. A
	// count mismatch is a hard failure, never a partial success.
	if len(users) != len(members) {
		return nil, ErrInvalidParticipants
	}

	room := &models.Room{Name: name}
	if name == nil || *name == "" {
		derived := display.DeriveName(users)
		room.Name = &derived
	}

	if err := s.roomRepo.Create(ctx, room, members); err != nil {
		if errors.Is(err, repository.ErrParticipantInsert) {
			return nil, ErrPartialRoomCreation
		}
		return nil, err
	}

	return dto.FromModelToRoomResponse(room), nil
}

// GetRoom loads a room for one of its participants. A missing row maps
// to ErrRoomNotFound; store failures propagate unchanged.
func (s *roomService) GetRoom(ctx context.Context, roomID, callerID string) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	for _, p := range room.Participants {
		if p.UserID == callerID {
			return room, nil
		}
	}
	return nil, ErrForbidden
}

// normalizeMembers drops blanks and duplicates and folds the caller
// into the membership set. Order is caller first, then the others as
// given.
func normalizeMembers(callerID string, participantIDs []string) []string {
	seen := map[string]bool{callerID: true}
	members := []string{callerID}
	for _, id := range participantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, id)
	}
	return members
}
