package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"chathub/internal/messaging/models"
	"chathub/internal/messaging/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockRoomRepository mocks the RoomRepository interface
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *models.Room, participantIDs []string) error {
	args := m.Called(ctx, room, participantIDs)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockRoomRepository) ListByUser(ctx context.Context, userID string) ([]models.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockRoomRepository) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

// MockUserRepository mocks the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func TestCreateRoom_DerivesSortedName(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	userRepo.On("GetByIDs", mock.Anything, []string{"caller", "other"}).Return([]models.User{
		{ID: "other", FirstName: "Sam", LastName: "Lee"},
		{ID: "caller", FirstName: "Jane", LastName: "Doe"},
	}, nil)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Room"), []string{"caller", "other"}).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Room).ID = "room-1"
		}).
		Return(nil)

	room, err := svc.CreateRoom(context.Background(), "caller", nil, []string{"other"})

	assert.NoError(t, err)
	assert.Equal(t, "room-1", room.ID)
	assert.Equal(t, "Jane Doe, Sam Lee", room.Name)
	roomRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateRoom_KeepsExplicitName(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	userRepo.On("GetByIDs", mock.Anything, []string{"caller", "other"}).Return([]models.User{
		{ID: "caller", FirstName: "Jane", LastName: "Doe"},
		{ID: "other", FirstName: "Sam", LastName: "Lee"},
	}, nil)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Room"), []string{"caller", "other"}).Return(nil)

	name := "Weekend Plans"
	room, err := svc.CreateRoom(context.Background(), "caller", &name, []string{"other"})

	assert.NoError(t, err)
	assert.Equal(t, "Weekend Plans", room.Name)
}

func TestCreateRoom_MembershipIsCallerPlusParticipants(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	// Duplicates and a redundant caller id collapse into one membership set.
	expected := []string{"caller", "u1", "u2"}
	userRepo.On("GetByIDs", mock.Anything, expected).Return([]models.User{
		{ID: "caller", FirstName: "A", LastName: "A"},
		{ID: "u1", FirstName: "B", LastName: "B"},
		{ID: "u2", FirstName: "C", LastName: "C"},
	}, nil)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Room"), expected).Return(nil)

	_, err := svc.CreateRoom(context.Background(), "caller", nil, []string{"u1", "caller", "u2", "u1", ""})

	assert.NoError(t, err)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoom_EmptyParticipants(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	_, err := svc.CreateRoom(context.Background(), "caller", nil, []string{})
	assert.ErrorIs(t, err, ErrInvalidParticipants)

	// Only the caller after normalization is still empty.
	_, err = svc.CreateRoom(context.Background(), "caller", nil, []string{"caller", ""})
	assert.ErrorIs(t, err, ErrInvalidParticipants)

	roomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoom_UnknownParticipant(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	// Two ids requested, one row back: hard failure, not partial success.
	userRepo.On("GetByIDs", mock.Anything, []string{"caller", "ghost"}).Return([]models.User{
		{ID: "caller", FirstName: "Jane", LastName: "Doe"},
	}, nil)

	_, err := svc.CreateRoom(context.Background(), "caller", nil, []string{"ghost"})

	assert.ErrorIs(t, err, ErrInvalidParticipants)
	roomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoom_ParticipantInsertFailure(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	userRepo.On("GetByIDs", mock.Anything, []string{"caller", "other"}).Return([]models.User{
		{ID: "caller", FirstName: "Jane", LastName: "Doe"},
		{ID: "other", FirstName: "Sam", LastName: "Lee"},
	}, nil)
	roomRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: constraint violation", repository.ErrParticipantInsert))

	_, err := svc.CreateRoom(context.Background(), "caller", nil, []string{"other"})

	assert.ErrorIs(t, err, ErrPartialRoomCreation)
}

func TestGetRoom_ParticipantOnly(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	room := &models.Room{
		ID:        "room-1",
		UpdatedAt: time.Now(),
		Participants: []models.RoomParticipant{
			{RoomID: "room-1", UserID: "member"},
			{RoomID: "room-1", UserID: "other"},
		},
	}
	roomRepo.On("GetByID", mock.Anything, "room-1").Return(room, nil)

	got, err := svc.GetRoom(context.Background(), "room-1", "member")
	assert.NoError(t, err)
	assert.Equal(t, "room-1", got.ID)

	_, err = svc.GetRoom(context.Background(), "room-1", "stranger")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetRoom_MissingRoom(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	roomRepo.On("GetByID", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.GetRoom(context.Background(), "ghost", "member")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetRoom_StoreFailurePropagates(t *testing.T) {
	roomRepo := new(MockRoomRepository)
	userRepo := new(MockUserRepository)
	svc := NewRoomService(roomRepo, userRepo)

	storeErr := errors.New("dial tcp: connection refused")
	roomRepo.On("GetByID", mock.Anything, "room-1").Return(nil, storeErr)

	_, err := svc.GetRoom(context.Background(), "room-1", "member")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}
