package notificationservice

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

//go:generate mockgen -source=notificationservice.go -destination=mock_notificationservice.go -package=notificationservice

type Repo interface {
	ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Notification, int, error)
	MarkRead(ctx context.Context, userID int, id string) (bool, error)
	SaveToken(ctx context.Context, t *domain.DeviceToken) error
}

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidToken         = errors.New("device token is required")
)

type Service struct {
	repo Repo
}

func New(repo Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID int, page domain.Page) (domain.PageResult[domain.Notification], error) {
	items, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		zap.L().Error("failed to list notifications", zap.Int("userID", userID), zap.Error(err))
		return domain.PageResult[domain.Notification]{}, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return domain.NewPageResult(items, total, page), nil
}

func (s *Service) MarkRead(ctx context.Context, userID int, id string) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// SaveToken registers a push token for the user. A token already owned by
// another user moves to this one.
func (s *Service) SaveToken(ctx context.Context, userID int, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if platform == "" {
		platform = "unknown"
	}
	if err := s.repo.SaveToken(ctx, &domain.DeviceToken{Token: token, UserID: userID, Platform: platform}); err != nil {
		return err
	}
	zap.L().Info("device token saved", zap.Int("userID", userID), zap.String("platform", platform))
	return nil
}
