package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

//go:generate mockgen -source=notify.go -destination=mock_notify.go -package=notify

const defaultPushTimeout = 10 * time.Second

var ErrTokenUnregistered = errors.New("device token is no longer registered")

type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	TokensByUsers(ctx context.Context, userIDs []int) ([]string, error)
	DeleteToken(ctx context.Context, token string) error
}

type AdminSource interface {
	AdminIDs(ctx context.Context) ([]int, error)
}

type Pusher interface {
	Push(ctx context.Context, token string, msg Message) error
}

type Message struct {
	Title    string
	Body     string
	Category string
}

type Service struct {
	store   Store
	admins  AdminSource
	pusher  Pusher
	timeout time.Duration
	wg      sync.WaitGroup
}

// New builds the notifier. A nil pusher keeps only the notification rows.
func New(store Store, admins AdminSource, pusher Pusher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &Service{
		store:   store,
		admins:  admins,
		pusher:  pusher,
		timeout: timeout,
	}
}

func (s *Service) NotifyUser(ctx context.Context, userID int, title, body, category string) {
	s.notify(ctx, []int{userID}, Message{Title: title, Body: body, Category: category})
}

func (s *Service) NotifyAdmins(ctx context.Context, title, body, category string) {
	ids, err := s.admins.AdminIDs(ctx)
	if err != nil {
		zap.L().Error("failed to load admins for notification", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	s.notify(ctx, ids, Message{Title: title, Body: body, Category: category})
}

// Wait blocks until all started push fan-outs are finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) notify(ctx context.Context, userIDs []int, msg Message) {
	for _, id := range userIDs {
		n := &domain.Notification{
			ID:       uuid.NewString(),
			UserID:   id,
			Title:    msg.Title,
			Body:     msg.Body,
			Category: msg.Category,
		}
		if err := s.store.Create(ctx, n); err != nil {
			zap.L().Error("failed to store notification", zap.Int("user_id", id), zap.Error(err))
		}
	}

	if s.pusher == nil {
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.push(pushCtx, userIDs, msg)
	}()
}

func (s *Service) push(ctx context.Context, userIDs []int, msg Message) {
	tokens, err := s.store.TokensByUsers(ctx, userIDs)
	if err != nil {
		zap.L().Error("failed to load device tokens", zap.Ints("user_ids", userIDs), zap.Error(err))
		return
	}

	for _, token := range tokens {
		err := s.pusher.Push(ctx, token, msg)
		switch {
		case err == nil:
		case errors.Is(err, ErrTokenUnregistered):
			if err := s.store.DeleteToken(ctx, token); err != nil {
				zap.L().Error("failed to drop stale device token", zap.Error(err))
			}
		default:
			zap.L().Warn("push delivery failed", zap.Error(err))
		}
	}
}
