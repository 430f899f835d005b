package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"chathub/internal/messaging/dto"
	"chathub/internal/messaging/models"
	"chathub/internal/messaging/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Send(ctx context.Context, roomID, senderID, content string) (*models.Message, error) {
	args := m.Called(ctx, roomID, senderID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) Edit(ctx context.Context, messageID, editorID, newContent string) (*models.Message, error) {
	args := m.Called(ctx, messageID, editorID, newContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) Delete(ctx context.Context, messageID, requesterID string) error {
	args := m.Called(ctx, messageID, requesterID)
	return args.Error(0)
}

func (m *MockMessageService) Page(ctx context.Context, roomID, userID string, before *time.Time, limit int) ([]models.Message, bool, error) {
	args := m.Called(ctx, roomID, userID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Bool(1), args.Error(2)
}

func newMessageRouter(userID string, svc service.MessageService) *gin.Engine {
	return newTestRouter(userID, NewMessageHandler(svc).RegisterRoutes)
}

func TestMessageHandlerSend_Success(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	created := &models.Message{ID: "msg-1", RoomID: "room-1", SenderID: "user-1", Content: "hello"}
	svc.On("Send", mock.Anything, "room-1", "user-1", "hello").Return(created, nil)

	w := performJSON(router, http.MethodPost, "/api/chat/rooms/room-1/messages", gin.H{"content": "hello"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var body dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "msg-1", body.ID)
	assert.Equal(t, "hello", body.Content)
	svc.AssertExpectations(t)
}

func TestMessageHandlerSend_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"empty content", service.ErrEmptyContent, http.StatusBadRequest},
		{"not a participant", service.ErrForbidden, http.StatusForbidden},
		{"room missing", service.ErrRoomNotFound, http.StatusNotFound},
		{"rate limited", service.ErrRateLimited, http.StatusTooManyRequests},
		{"storage failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockMessageService)
			router := newMessageRouter("user-1", svc)

			svc.On("Send", mock.Anything, "room-1", "user-1", "hi").Return(nil, tc.serviceErr)

			w := performJSON(router, http.MethodPost, "/api/chat/rooms/room-1/messages", gin.H{"content": "hi"})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestMessageHandlerSend_MissingContent(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	w := performJSON(router, http.MethodPost, "/api/chat/rooms/room-1/messages", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Send")
}

func TestMessageHandlerListByRoom_NewestPage(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	page := []models.Message{
		{ID: "msg-1", RoomID: "room-1", Content: "first"},
		{ID: "msg-2", RoomID: "room-1", Content: "second"},
	}
	svc.On("Page", mock.Anything, "room-1", "user-1", (*time.Time)(nil), service.DefaultPageSize).
		Return(page, true, nil)

	w := performJSON(router, http.MethodGet, "/api/chat/rooms/room-1/messages", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body dto.PagedMessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "msg-1", body.Data[0].ID)
	assert.True(t, body.HasMore)
}

func TestMessageHandlerListByRoom_WithCursor(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	cursor := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc.On("Page", mock.Anything, "room-1", "user-1", mock.MatchedBy(func(before *time.Time) bool {
		return before != nil && before.Equal(cursor)
	}), 5).Return([]models.Message{}, false, nil)

	w := performJSON(router, http.MethodGet,
		"/api/chat/rooms/room-1/messages?before=2024-06-01T12:00:00Z&limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body dto.PagedMessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Data)
	assert.False(t, body.HasMore)
	svc.AssertExpectations(t)
}

func TestMessageHandlerListByRoom_BadQuery(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	for _, target := range []string{
		"/api/chat/rooms/room-1/messages?before=last-tuesday",
		"/api/chat/rooms/room-1/messages?limit=0",
		"/api/chat/rooms/room-1/messages?limit=500",
		"/api/chat/rooms/room-1/messages?limit=abc",
	} {
		w := performJSON(router, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	svc.AssertNotCalled(t, "Page")
}

func TestMessageHandlerListByRoom_Forbidden(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	svc.On("Page", mock.Anything, "room-1", "user-1", (*time.Time)(nil), service.DefaultPageSize).
		Return(nil, false, service.ErrForbidden)

	w := performJSON(router, http.MethodGet, "/api/chat/rooms/room-1/messages", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageHandlerUpdate(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	edited := &models.Message{ID: "msg-1", RoomID: "room-1", SenderID: "user-1", Content: "rewritten"}
	svc.On("Edit", mock.Anything, "msg-1", "user-1", "rewritten").Return(edited, nil)

	w := performJSON(router, http.MethodPut, "/api/chat/messages/msg-1", gin.H{"content": "rewritten"})

	assert.Equal(t, http.StatusOK, w.Code)
	var body dto.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rewritten", body.Content)
}

func TestMessageHandlerUpdate_NotSender(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	svc.On("Edit", mock.Anything, "msg-1", "user-1", "rewritten").Return(nil, service.ErrForbidden)

	w := performJSON(router, http.MethodPut, "/api/chat/messages/msg-1", gin.H{"content": "rewritten"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMessageHandlerDelete(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	svc.On("Delete", mock.Anything, "msg-1", "user-1").Return(nil)

	w := performJSON(router, http.MethodDelete, "/api/chat/messages/msg-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMessageHandlerDelete_NotFound(t *testing.T) {
	svc := new(MockMessageService)
	router := newMessageRouter("user-1", svc)

	svc.On("Delete", mock.Anything, "msg-1", "user-1").Return(service.ErrMessageNotFound)

	w := performJSON(router, http.MethodDelete, "/api/chat/messages/msg-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
