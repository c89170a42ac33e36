package cartrepo

import (
	"context"
	"encoding/json"
	"fmt"

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

func (r *Repository) Add(ctx context.Context, item *domain.CartItem) error {
	var denomination []byte
	if item.Denomination != nil {
		var err error
		if denomination, err = json.Marshal(item.Denomination); err != nil {
			return fmt.Errorf("encode denomination: %w", err)
		}
	}
	query := `
		INSERT INTO cart_items (id, user_id, product_id, name, price, quantity, region_id, denomination_id, denomination,
			quantity_label, custom_input_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, item.ID, item.UserID, item.ProductID, item.Name, item.Price, item.Quantity,
		item.RegionID, item.DenominationID, denomination, item.QuantityLabel, item.CustomInputValue).Scan(&item.CreatedAt)
	if err != nil {
		zap.L().Error("can't add cart item", zap.Int("userID", item.UserID), zap.Error(err))
		return pg.Classify(err)
	}
	return nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, name, price, quantity, region_id, denomination_id, denomination,
			quantity_label, custom_input_value, created_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get cart", zap.Int("userID", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var (
			item         domain.CartItem
			denomination []byte
		)
		err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Name, &item.Price, &item.Quantity,
			&item.RegionID, &item.DenominationID, &denomination, &item.QuantityLabel, &item.CustomInputValue, &item.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan cart item", zap.Error(err))
			return nil, err
		}
		if item.Denomination, err = domain.DecodeAttrs(denomination); err != nil {
			zap.L().Error("can't decode cart denomination", zap.String("itemID", item.ID), zap.Error(err))
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, userID int, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		zap.L().Error("can't delete cart item", zap.String("itemID", id), zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteByIDs(ctx context.Context, userID int, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)", userID, ids)
	if err != nil {
		zap.L().Error("can't delete cart items", zap.Int("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context, userID int) error {
	_, err := r.db.Exec(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		zap.L().Error("can't clear cart", zap.Int("userID", userID), zap.Error(err))
		return err
	}
	return nil
}
