package notificationrepo

import (
	"context"

	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, body, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, n.ID, n.UserID, n.Title, n.Body, n.Category).Scan(&n.CreatedAt)
	if err != nil {
		zap.L().Error("can't save notification", zap.Int("userID", n.UserID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM notifications WHERE user_id = $1", userID).Scan(&total); err != nil {
		zap.L().Error("can't count notifications", zap.Error(err))
		return nil, 0, err
	}
	query := `
		SELECT id, user_id, title, body, category, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, page.Limit, page.Skip)
	if err != nil {
		zap.L().Error("can't get notifications", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			zap.L().Error("can't scan notification", zap.Error(err))
			return nil, 0, err
		}
		list = append(list, n)
	}
	return list, total, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, userID int, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		zap.L().Error("can't mark notification read", zap.String("notificationID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) SaveToken(ctx context.Context, t *domain.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (token, user_id, platform, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = now()
	`
	_, err := r.db.Exec(ctx, query, t.Token, t.UserID, t.Platform)
	if err != nil {
		zap.L().Error("can't save device token", zap.Int("userID", t.UserID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) TokensByUsers(ctx context.Context, userIDs []int) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, "SELECT token FROM device_tokens WHERE user_id = ANY($1)", userIDs)
	if err != nil {
		zap.L().Error("can't get device tokens", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			zap.L().Error("can't scan device token", zap.Error(err))
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *Repository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM device_tokens WHERE token = $1", token)
	if err != nil {
		zap.L().Error("can't delete device token", zap.Error(err))
		return err
	}
	return nil
}
