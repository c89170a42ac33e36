package balancerepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

var ErrUserNotFound = errors.New("user not found")

// Repository mutates users.balance. Every call must be paired with a ledger
// row in the same transaction.
type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetUserBalance(ctx context.Context, userID int) (*domain.Balance, error) {
	query := `
        SELECT u.id, u.balance, COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'debit'), 0)
        FROM users u
        LEFT JOIN transactions t ON t.user_id = u.id
        WHERE u.id = $1
        GROUP BY u.id, u.balance
    `
	var balance domain.Balance
	err := r.db.QueryRow(ctx, query, userID).Scan(&balance.UserID, &balance.Current, &balance.Spent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get user balance", zap.Error(err))
		return nil, err
	}
	return &balance, nil
}

// Debit takes amount from the balance only if it is sufficient. The UPDATE
// holds the user row lock until the surrounding transaction ends.
func (r *Repository) Debit(ctx context.Context, userID int, amount decimal.Decimal) (bool, error) {
	query := `
		UPDATE users
		SET balance = balance - $1
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`
	var left decimal.Decimal
	err := r.db.QueryRow(ctx, query, amount, userID).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		zap.L().Error("failed to debit balance", zap.Int("userID", userID), zap.Error(err))
		return false, pg.Classify(err)
	}
	return true, nil
}

func (r *Repository) Credit(ctx context.Context, userID int, amount decimal.Decimal) error {
	query := `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, amount, userID)
	if err != nil {
		zap.L().Error("failed to credit balance", zap.Int("userID", userID), zap.Error(err))
		return pg.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
