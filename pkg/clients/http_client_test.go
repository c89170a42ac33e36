package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHTTPClient_GetAndPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Method", r.Method)
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte(r.Header.Get("X-Test")+":"), body...))
	}))
	defer srv.Close()

	client := NewHTTPClient()

	code, body, headers, err := client.Get(context.Background(), srv.URL, http.Header{"X-Test": {"get"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "get:", string(body))
	assert.Equal(t, http.MethodGet, headers.Get("X-Method"))

	code, body, err = client.Post(context.Background(), srv.URL, http.Header{"X-Test": {"post"}}, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "post:payload", string(body))
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewHTTPClient().Post(ctx, srv.URL, nil, nil)
	assert.Error(t, err)
}

func TestHTTPClient_SetClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockHTTPClientI(ctrl)
	client := NewHTTPClient()
	client.SetClient(mock)

	mock.EXPECT().Post(gomock.Any(), "http://x", gomock.Any(), []byte("a")).Return(http.StatusAccepted, []byte("ok"), nil)

	code, body, err := client.Post(context.Background(), "http://x", nil, []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "ok", string(body))
}
