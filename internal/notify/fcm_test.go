package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/ratnzer/pkg/clients"
)

func newTestPusher(t *testing.T, handler http.HandlerFunc) *FCMPusher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := NewTokenCache(func(ctx context.Context) (string, time.Time, error) {
		return "access", time.Now().Add(time.Hour), nil
	})
	p := NewFCMPusher("shop-app", cache, clients.NewHTTPClient())
	p.endpoint = srv.URL + "/v1/projects/shop-app/messages:send"
	return p
}

func TestNewFCMPusher_Endpoint(t *testing.T) {
	p := NewFCMPusher("shop-app", nil, nil)
	assert.Equal(t, "https://fcm.googleapis.com/v1/projects/shop-app/messages:send", p.endpoint)
}

func TestFCMPusher_Push(t *testing.T) {
	p := newTestPusher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		var req fcmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "device-1", req.Message.Token)
		assert.Equal(t, "Title", req.Message.Notification.Title)
		assert.Equal(t, "order", req.Message.Data["category"])
		_, _ = w.Write([]byte(`{"name":"projects/shop-app/messages/1"}`))
	})

	err := p.Push(context.Background(), "device-1", Message{Title: "Title", Body: "Body", Category: "order"})
	assert.NoError(t, err)
}

func TestFCMPusher_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		unregister bool
	}{
		{"not found", http.StatusNotFound, `{"error":{"status":"NOT_FOUND"}}`, true},
		{"unregistered", http.StatusBadRequest, `{"error":{"status":"INVALID_ARGUMENT","details":[{"errorCode":"UNREGISTERED"}]}}`, true},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPusher(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := p.Push(context.Background(), "d", Message{Title: "t"})
			require.Error(t, err)
			assert.Equal(t, tt.unregister, err == ErrTokenUnregistered)
		})
	}
}
