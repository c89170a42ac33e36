package orderrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

const orderColumns = `id, user_id, product_id, product_name, region_id, region_name, denomination_id, quantity_label,
	custom_input_value, amount, status, fulfillment_type, delivered_code, rejection_reason, provider_name,
	provider_order_id, payment_id, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.ProductName, &o.RegionID, &o.RegionName, &o.DenominationID, &o.QuantityLabel,
		&o.CustomInputValue, &o.Amount, &o.Status, &o.FulfillmentType, &o.DeliveredCode, &o.RejectionReason, &o.ProviderName,
		&o.ProviderOrderID, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) Create(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, product_id, product_name, region_id, region_name, denomination_id, quantity_label,
			custom_input_value, amount, status, fulfillment_type, delivered_code, provider_name, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		o.ID, o.UserID, o.ProductID, o.ProductName, o.RegionID, o.RegionName, o.DenominationID, o.QuantityLabel,
		o.CustomInputValue, o.Amount, string(o.Status), string(o.FulfillmentType), o.DeliveredCode, o.ProviderName, o.PaymentID,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save order", zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) get(ctx context.Context, query, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find order", zap.String("orderID", id), zap.Error(err))
		return nil, err
	}
	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
}

// GetForUpdate locks the order row until the surrounding transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
}

// Update writes the mutable fields. A delivered code that is already set is
// never replaced.
func (r *Repository) Update(ctx context.Context, o *domain.Order) error {
	query := `
        UPDATE orders
        SET status = $1, fulfillment_type = $2, delivered_code = COALESCE(delivered_code, $3),
            rejection_reason = $4, provider_name = $5, provider_order_id = $6, updated_at = now()
        WHERE id = $7
    `
	_, err := r.db.Exec(ctx, query,
		string(o.Status), string(o.FulfillmentType), o.DeliveredCode, o.RejectionReason, o.ProviderName, o.ProviderOrderID, o.ID,
	)
	if err != nil {
		zap.L().Error("failed to update order", zap.String("orderID", o.ID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) collect(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *Repository) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM orders WHERE user_id = $1", userID).Scan(&total); err != nil {
		zap.L().Error("can't count orders", zap.Error(err))
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, page.Limit, page.Skip)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, 0, err
	}
	orders, err := r.collect(rows)
	return orders, total, err
}

func (r *Repository) List(ctx context.Context, page domain.Page) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM orders").Scan(&total); err != nil {
		zap.L().Error("can't count orders", zap.Error(err))
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		page.Limit, page.Skip)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, 0, err
	}
	orders, err := r.collect(rows)
	return orders, total, err
}

func (r *Repository) ListByPayment(ctx context.Context, paymentID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE payment_id = $1 ORDER BY created_at ASC",
		paymentID)
	if err != nil {
		zap.L().Error("can't get orders by payment", zap.String("paymentID", paymentID), zap.Error(err))
		return nil, err
	}
	return r.collect(rows)
}

// ListPendingProvider returns pending orders already accepted by the
// fulfillment provider, oldest first.
func (r *Repository) ListPendingProvider(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND provider_order_id IS NOT NULL ORDER BY created_at ASC LIMIT $2",
		string(domain.OrderPending), limit)
	if err != nil {
		zap.L().Error("can't get orders for provider sync", zap.Error(err))
		return nil, err
	}
	return r.collect(rows)
}
