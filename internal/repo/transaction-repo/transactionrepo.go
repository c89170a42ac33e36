package transactionrepo

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

func (r *Repository) Append(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, title, amount, type, status, payment_id, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	if t.Status == "" {
		t.Status = domain.TransactionCompleted
	}
	err := r.db.QueryRow(ctx, query, t.ID, t.UserID, t.Title, t.Amount, string(t.Type), t.Status, t.PaymentID, t.OrderID).
		Scan(&t.CreatedAt)
	if err != nil {
		zap.L().Error("failed to append transaction", zap.Int("userID", t.UserID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Transaction, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM transactions WHERE user_id = $1", userID).Scan(&total); err != nil {
		zap.L().Error("failed to count transactions", zap.Error(err))
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, title, amount, type, status, payment_id, order_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, page.Limit, page.Skip)
	if err != nil {
		zap.L().Error("failed to get transactions", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Amount, &t.Type, &t.Status, &t.PaymentID, &t.OrderID, &t.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan transaction", zap.Error(err))
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}
