package paymentrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

const paymentColumns = `id, user_id, amount, currency, provider, status, intent, transaction_ref, metadata,
	failure_reason, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p        domain.Payment
		metadata []byte
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Provider, &p.Status, &p.Intent, &p.TransactionRef,
		&metadata, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("decode payment metadata: %w", err)
		}
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Payment) error {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("encode payment metadata: %w", err)
	}
	query := `
		INSERT INTO payments (id, user_id, amount, currency, provider, status, intent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query, p.ID, p.UserID, p.Amount, p.Currency, p.Provider, string(p.Status), string(p.Intent), metadata).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save payment", zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find payment", zap.Any("key", arg), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id)
}

func (r *Repository) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.get(ctx, "SELECT "+paymentColumns+" FROM payments WHERE transaction_ref = $1", ref)
}

// GetForUpdate is the authoritative read: it locks the row so concurrent
// finalizers queue behind the first one.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = $1 FOR UPDATE", id)
}

func (r *Repository) SetTransactionRef(ctx context.Context, id, ref string) error {
	query := `
		UPDATE payments
		SET transaction_ref = $1, updated_at = now()
		WHERE id = $2 AND (transaction_ref IS NULL OR transaction_ref = $1)
	`
	_, err := r.db.Exec(ctx, query, ref, id)
	if err != nil {
		zap.L().Error("can't store transaction ref", zap.String("paymentID", id), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

// UpdateStatus moves a pending payment to a terminal status. It reports false
// when the payment was no longer pending.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, reason *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, failure_reason = $2, updated_at = now()
		WHERE id = $3 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, string(status), reason, id)
	if err != nil {
		zap.L().Error("can't update payment status", zap.String("paymentID", id), zap.Error(err))
		return false, pg.Classify(err)
	}
	return tag.RowsAffected() == 1, nil
}
