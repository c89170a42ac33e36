package productrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
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

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, category, price, denominations, regions, custom_input, api_config, auto_deliver_stock
		FROM products
		WHERE id = $1
	`
	var (
		p                                      domain.Product
		price                                  decimal.NullDecimal
		denominations, regions, input, apiConf []byte
	)
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Category, &price, &denominations, &regions, &input, &apiConf, &p.AutoDeliverStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't get product", zap.String("productID", id), zap.Error(err))
		return nil, err
	}
	p.Price = price

	// A malformed document field is treated as absent.
	fields := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"denominations", denominations, &p.Denominations},
		{"regions", regions, &p.Regions},
		{"custom_input", input, &p.CustomInput},
		{"api_config", apiConf, &p.APIConfig},
	}
	for _, f := range fields {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			zap.L().Warn("malformed product field", zap.String("productID", id), zap.String("field", f.name),
				zap.Error(fmt.Errorf("decode: %w", err)))
		}
	}
	return &p, nil
}
