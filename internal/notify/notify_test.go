package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type mocks struct {
	store  *MockStore
	admins *MockAdminSource
	pusher *MockPusher
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		store:  NewMockStore(ctrl),
		admins: NewMockAdminSource(ctrl),
		pusher: NewMockPusher(ctrl),
	}
	return New(m.store, m.admins, m.pusher, time.Second), m
}

func TestService_NotifyUser(t *testing.T) {
	srv, m := NewMock(t)
	ctx := context.Background()
	msg := Message{Title: "Order completed", Body: "Your code is ready", Category: "order"}

	m.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *domain.Notification) error {
		assert.Equal(t, 7, n.UserID)
		assert.Equal(t, msg.Title, n.Title)
		assert.Equal(t, "order", n.Category)
		assert.NotEmpty(t, n.ID)
		return nil
	})
	m.store.EXPECT().TokensByUsers(gomock.Any(), []int{7}).Return([]string{"t1", "t2"}, nil)
	m.pusher.EXPECT().Push(gomock.Any(), "t1", msg).Return(nil)
	m.pusher.EXPECT().Push(gomock.Any(), "t2", msg).Return(ErrTokenUnregistered)
	m.store.EXPECT().DeleteToken(gomock.Any(), "t2").Return(nil)

	srv.NotifyUser(ctx, 7, msg.Title, msg.Body, msg.Category)
	srv.Wait()
}

func TestService_NotifyUser_FailuresAreSwallowed(t *testing.T) {
	srv, m := NewMock(t)
	ctx, cancel := context.WithCancel(context.Background())

	m.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	m.store.EXPECT().TokensByUsers(gomock.Any(), []int{1}).DoAndReturn(func(ctx context.Context, _ []int) ([]string, error) {
		assert.NoError(t, ctx.Err())
		return []string{"t"}, nil
	})
	m.pusher.EXPECT().Push(gomock.Any(), "t", gomock.Any()).Return(errors.New("fcm 500"))

	srv.NotifyUser(ctx, 1, "a", "b", "c")
	cancel()
	srv.Wait()
}

func TestService_NotifyAdmins(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *mocks)
	}{
		{
			name: "fan out",
			setup: func(m *mocks) {
				m.admins.EXPECT().AdminIDs(gomock.Any()).Return([]int{1, 2}, nil)
				m.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.store.EXPECT().TokensByUsers(gomock.Any(), []int{1, 2}).Return(nil, nil)
			},
		},
		{
			name: "no admins",
			setup: func(m *mocks) {
				m.admins.EXPECT().AdminIDs(gomock.Any()).Return(nil, nil)
			},
		},
		{
			name: "admin lookup fails",
			setup: func(m *mocks) {
				m.admins.EXPECT().AdminIDs(gomock.Any()).Return(nil, errors.New("boom"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, m := NewMock(t)
			tt.setup(m)
			srv.NotifyAdmins(context.Background(), "New order", "body", "order")
			srv.Wait()
		})
	}
}

func TestService_WithoutPusher(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	srv := New(store, NewMockAdminSource(ctrl), nil, 0)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	srv.NotifyUser(context.Background(), 3, "t", "b", "c")
	srv.Wait()
}

func TestTokenCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	cache := NewTokenCache(func(ctx context.Context) (string, time.Time, error) {
		calls++
		return "tok", now.Add(time.Hour), nil
	})
	cache.now = func() time.Time { return now }

	tok, err := cache.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "tok", tok)

	_, _ = cache.Token(context.Background())
	assert.Equal(t, 1, calls)

	now = now.Add(59*time.Minute + 30*time.Second)
	_, _ = cache.Token(context.Background())
	assert.Equal(t, 2, calls)

	cache.Reset()
	_, _ = cache.Token(context.Background())
	assert.Equal(t, 3, calls)
}

func TestTokenCache_FetchError(t *testing.T) {
	cache := NewTokenCache(func(ctx context.Context) (string, time.Time, error) {
		return "", time.Time{}, errors.New("invalid_grant")
	})

	_, err := cache.Token(context.Background())
	assert.ErrorContains(t, err, "invalid_grant")
}

func TestGoogleTokenFetcher_InvalidJSON(t *testing.T) {
	_, err := GoogleTokenFetcher([]byte("{"))
	assert.Error(t, err)
}
