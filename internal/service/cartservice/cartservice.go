package cartservice

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/internal/service/pricing"
)

//go:generate mockgen -source=cartservice.go -destination=mock_cartservice.go -package=cartservice

type CartRepo interface {
	Add(ctx context.Context, item *domain.CartItem) error
	ListByUser(ctx context.Context, userID int) ([]domain.CartItem, error)
	Delete(ctx context.Context, userID int, id string) (bool, error)
	Clear(ctx context.Context, userID int) error
}

type ProductRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

var ErrItemNotFound = errors.New("cart item not found")

const (
	minQuantity = 1
	maxQuantity = 100
)

type AddInput struct {
	ProductID        string
	RegionID         string
	DenominationID   string
	QuantityLabel    string
	Quantity         int
	CustomInputValue string
}

type Service struct {
	cartRepo    CartRepo
	productRepo ProductRepo
}

func New(cartRepo CartRepo, productRepo ProductRepo) *Service {
	return &Service{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// Add stores a cart line priced from the catalog. Client prices are never
// accepted here.
func (s *Service) Add(ctx context.Context, userID int, in AddInput) (*domain.CartItem, error) {
	if in.ProductID == "" {
		return nil, orderservice.ErrProductNotFound
	}
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		zap.L().Error("failed to load product for cart", zap.String("productID", in.ProductID), zap.Error(err))
		return nil, err
	}
	if product == nil {
		return nil, orderservice.ErrProductNotFound
	}

	view := product.ForRegion(in.RegionID)
	key := in.DenominationID
	if key == "" {
		key = in.QuantityLabel
	}
	var denomination domain.Attrs
	if key != "" {
		denomination = pricing.Match(view, key)
	}
	price := pricing.Resolve(view, key, denomination, decimal.Zero).Round(2)
	if !price.IsPositive() {
		return nil, orderservice.ErrInvalidPrice
	}

	custom := strings.TrimSpace(in.CustomInputValue)
	if ci := product.ActiveCustomInput(in.RegionID); ci != nil && ci.Enabled && ci.Required && custom == "" {
		return nil, orderservice.ErrCustomInputRequired
	}

	item := &domain.CartItem{
		ID:               uuid.NewString(),
		UserID:           userID,
		ProductID:        product.ID,
		Name:             product.Name,
		Price:            price,
		Quantity:         clampQuantity(in.Quantity),
		RegionID:         domain.StringPtr(in.RegionID),
		DenominationID:   domain.StringPtr(in.DenominationID),
		Denomination:     denomination,
		QuantityLabel:    domain.StringPtr(in.QuantityLabel),
		CustomInputValue: domain.StringPtr(custom),
	}
	if err := s.cartRepo.Add(ctx, item); err != nil {
		return nil, err
	}

	zap.L().Info("cart item added",
		zap.Int("userID", userID),
		zap.String("productID", product.ID),
		zap.String("price", price.String()))
	return item, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]domain.CartItem, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

func (s *Service) Remove(ctx context.Context, userID int, id string) error {
	removed, err := s.cartRepo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrItemNotFound
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID int) error {
	return s.cartRepo.Clear(ctx, userID)
}

func clampQuantity(q int) int {
	return min(max(q, minQuantity), maxQuantity)
}
