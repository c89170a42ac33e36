package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

//go:generate mockgen -source=product.go -destination=mock_product.go -package=cache

type ProductSource interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// ProductCache is a read-through cache in front of the catalog. Cache errors
// are logged and the source is used instead.
type ProductCache struct {
	source ProductSource
	store  Store
	ttl    time.Duration
}

func NewProductCache(source ProductSource, store Store, ttl time.Duration) *ProductCache {
	return &ProductCache{
		source: source,
		store:  store,
		ttl:    ttl,
	}
}

func productKey(id string) string {
	return "product:" + id
}

func (c *ProductCache) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if c.store == nil || c.ttl <= 0 {
		return c.source.GetByID(ctx, id)
	}

	raw, err := c.store.Get(ctx, productKey(id))
	switch {
	case err == nil:
		var p domain.Product
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&p); err == nil {
			return &p, nil
		}
		zap.L().Warn("dropping undecodable cached product", zap.String("productID", id))
	case !errors.Is(err, ErrMiss):
		zap.L().Warn("product cache read failed", zap.String("productID", id), zap.Error(err))
	}

	p, err := c.source.GetByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.store.Set(ctx, productKey(id), raw, c.ttl); err != nil {
			zap.L().Warn("product cache write failed", zap.String("productID", id), zap.Error(err))
		}
	}
	return p, nil
}

func (c *ProductCache) Invalidate(ctx context.Context, id string) error {
	if c.store == nil {
		return nil
	}
	return c.store.Del(ctx, productKey(id))
}
