package inventoryrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
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

// Claim takes the oldest unused code for the product whose region and
// denomination either match or are unset, and marks it used. It must run
// inside the order transaction. Returns nil when no code is available.
func (r *Repository) Claim(ctx context.Context, productID string, regionID, denominationID *string) (*domain.InventoryCode, error) {
	query := `
		SELECT id, product_id, region_id, denomination_id, code, created_at
		FROM inventory
		WHERE product_id = $1 AND is_used = false
			AND (region_id = $2 OR region_id IS NULL)
			AND (denomination_id = $3 OR denomination_id IS NULL)
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	var c domain.InventoryCode
	err := r.db.QueryRow(ctx, query, productID, regionID, denominationID).
		Scan(&c.ID, &c.ProductID, &c.RegionID, &c.DenominationID, &c.Code, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't claim inventory code", zap.String("productID", productID), zap.Error(err))
		return nil, err
	}

	var usedAt time.Time
	err = r.db.QueryRow(ctx, "UPDATE inventory SET is_used = true, used_at = now() WHERE id = $1 RETURNING used_at", c.ID).
		Scan(&usedAt)
	if err != nil {
		zap.L().Error("can't mark inventory code used", zap.String("codeID", c.ID), zap.Error(err))
		return nil, pg.Classify(err)
	}
	c.IsUsed = true
	c.UsedAt = &usedAt
	return &c, nil
}

func (r *Repository) LinkOrder(ctx context.Context, codeID, orderID string) error {
	_, err := r.db.Exec(ctx, "UPDATE inventory SET used_by_order_id = $1 WHERE id = $2", orderID, codeID)
	if err != nil {
		zap.L().Error("can't link inventory code to order", zap.String("codeID", codeID), zap.String("orderID", orderID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}
