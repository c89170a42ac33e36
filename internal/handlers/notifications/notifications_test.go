package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/notificationservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
)

func NewMock(t *testing.T) (*NotificationHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	return New(service), service
}

func withUser(req *http.Request, userID int) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, userID))
}

func TestList(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().List(gomock.Any(), 3, domain.Page{Limit: 10, Skip: 10}).Return(domain.PageResult[domain.Notification]{
		Items: []domain.Notification{{ID: "n-1", UserID: 3, Title: "Order completed", Category: "order"}},
		Total: 11,
	}, nil)

	rr := httptest.NewRecorder()
	handler.List(rr, withUser(httptest.NewRequest("GET", "/api/notifications?skip=10", nil), 3))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp dto.NotificationPageDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Order completed", resp.Items[0].Title)
	assert.Equal(t, 11, resp.Total)
}

func TestMarkRead(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "Marked", expectedCode: http.StatusOK},
		{name: "Foreign or absent", err: notificationservice.ErrNotificationNotFound, expectedCode: http.StatusNotFound},
		{name: "Store failure", err: errors.New("db down"), expectedCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service.EXPECT().MarkRead(gomock.Any(), 3, "n-1").Return(tt.err)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "n-1")
			req := withUser(httptest.NewRequest("PUT", "/api/notifications/n-1/read", nil), 3)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rr := httptest.NewRecorder()

			handler.MarkRead(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestSaveToken(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Saved",
			body: `{"token":"fcm-token","platform":"android"}`,
			prepareMock: func() {
				service.EXPECT().SaveToken(gomock.Any(), 3, "fcm-token", "android").Return(nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing token",
			body:         `{"platform":"ios"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "Blank token",
			body: `{"token":"   "}`,
			prepareMock: func() {
				service.EXPECT().SaveToken(gomock.Any(), 3, "   ", "").Return(notificationservice.ErrInvalidToken)
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.SaveToken(rr, withUser(httptest.NewRequest("POST", "/api/notifications/tokens", bytes.NewBufferString(tt.body)), 3))

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}
