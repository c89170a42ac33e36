package orderservice

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/pg"
	"github.com/GlebRadaev/ratnzer/internal/service/pricing"
)

//go:generate mockgen -source=orderservice.go -destination=mock_orderservice.go -package=orderservice

type UserRepo interface {
	GetByID(ctx context.Context, id int) (*domain.User, error)
}

type BalanceRepo interface {
	Debit(ctx context.Context, userID int, amount decimal.Decimal) (bool, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Order, int, error)
	List(ctx context.Context, page domain.Page) ([]domain.Order, int, error)
}

type InventoryRepo interface {
	Claim(ctx context.Context, productID string, regionID, denominationID *string) (*domain.InventoryCode, error)
	LinkOrder(ctx context.Context, codeID, orderID string) error
}

type TransactionRepo interface {
	Append(ctx context.Context, t *domain.Transaction) error
}

type ProductRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Dispatcher interface {
	PlaceOrder(ctx context.Context, serviceID, link string, quantity int) (string, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID int, title, body, category string)
	NotifyAdmins(ctx context.Context, title, body, category string)
}

var (
	ErrInvalidPrice        = errors.New("invalid order price")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrProductNotFound     = errors.New("product not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserBanned          = errors.New("user is banned")
	ErrCustomInputRequired = errors.New("custom input is required for this product")
	ErrProviderFailed      = errors.New("provider failed to accept the order")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderAlreadyFinal   = errors.New("order already has this status")
	ErrInvalidStatus       = errors.New("invalid order status")
)

const (
	dispatchLimit  = 4
	effectsTimeout = 2 * time.Minute
)

type Deps struct {
	Users      UserRepo
	Balances   BalanceRepo
	Orders     OrderRepo
	Inventory  InventoryRepo
	Ledger     TransactionRepo
	Products   ProductRepo
	TX         pg.TXManager
	Dispatcher Dispatcher
	Notifier   Notifier
	Metrics    *metrics.Metrics
}

type Service struct {
	users      UserRepo
	balances   BalanceRepo
	orders     OrderRepo
	inventory  InventoryRepo
	ledger     TransactionRepo
	products   ProductRepo
	tx         pg.TXManager
	dispatcher Dispatcher
	notifier   Notifier
	metrics    *metrics.Metrics
}

func New(d Deps) *Service {
	return &Service{
		users:      d.Users,
		balances:   d.Balances,
		orders:     d.Orders,
		inventory:  d.Inventory,
		ledger:     d.Ledger,
		products:   d.Products,
		tx:         d.TX,
		dispatcher: d.Dispatcher,
		notifier:   d.Notifier,
		metrics:    d.Metrics,
	}
}

// Selection is what the buyer picked. Denomination is only ever filled from a
// snapshot the server wrote itself (cart row, payment metadata).
type Selection struct {
	ProductID        string
	RegionID         string
	RegionName       string
	DenominationID   string
	QuantityLabel    string
	Quantity         int
	CustomInputValue string
	Denomination     domain.Attrs
}

// PlaceInput is a priced and validated selection ready to be written.
type PlaceInput struct {
	UserID    int
	Product   *domain.Product
	Selection Selection
	Amount    decimal.Decimal
	PaymentID string
}

// Prepare validates the buyer and the selection and prices it on the server.
func (s *Service) Prepare(ctx context.Context, userID int, sel Selection, clientPrice decimal.Decimal) (*PlaceInput, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status == domain.UserBanned {
		zap.L().Info("banned user tried to order", zap.Int("user_id", userID))
		return nil, ErrUserBanned
	}

	product, err := s.Product(ctx, sel.ProductID)
	if err != nil {
		return nil, err
	}

	price := s.Price(product, sel, clientPrice)
	if !price.IsPositive() {
		zap.L().Info("rejected order with non-positive price", zap.String("product_id", product.ID))
		return nil, ErrInvalidPrice
	}

	sel.CustomInputValue = strings.TrimSpace(sel.CustomInputValue)
	if ci := product.ActiveCustomInput(sel.RegionID); ci != nil && ci.Enabled && ci.Required && sel.CustomInputValue == "" {
		return nil, ErrCustomInputRequired
	}
	if sel.QuantityLabel == "" && sel.Quantity > 0 {
		sel.QuantityLabel = strconv.Itoa(sel.Quantity)
	}
	if sel.RegionName == "" {
		if r := product.Region(sel.RegionID); r != nil {
			sel.RegionName = r.Name
		}
	}

	return &PlaceInput{
		UserID:    userID,
		Product:   product,
		Selection: sel,
		Amount:    price,
	}, nil
}

func (s *Service) Product(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrProductNotFound
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Price resolves the trusted price of a selection against the region view of
// the product, in cents as stored by the ledger.
func (s *Service) Price(product *domain.Product, sel Selection, clientPrice decimal.Decimal) decimal.Decimal {
	key := sel.DenominationID
	if key == "" {
		key = sel.QuantityLabel
	}
	return pricing.Resolve(product.ForRegion(sel.RegionID), key, sel.Denomination, clientPrice).Round(2)
}

// CreateOrder is the wallet purchase: one transaction that debits the balance
// and writes the order, then provider dispatch and notifications.
func (s *Service) CreateOrder(ctx context.Context, userID int, sel Selection, clientPrice decimal.Decimal) (*domain.Order, error) {
	in, err := s.Prepare(ctx, userID, sel, clientPrice)
	if err != nil {
		return nil, err
	}

	var (
		order   *domain.Order
		effects Effects
	)
	err = s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, effects, err = s.PlaceInTx(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(string(order.FulfillmentType))
	zap.L().Info("order created",
		zap.String("order_id", order.ID),
		zap.Int("user_id", userID),
		zap.String("amount", order.Amount.String()),
		zap.String("status", string(order.Status)))

	effects.Notices = append(effects.Notices, adminOrderNotice(order))
	if err := s.RunEffects(ctx, effects); err != nil {
		return nil, err
	}

	current, err := s.orders.GetByID(ctx, order.ID)
	if err != nil || current == nil {
		return order, nil
	}
	return current, nil
}

func (s *Service) ListMine(ctx context.Context, userID int, page domain.Page) (domain.PageResult[domain.Order], error) {
	items, total, err := s.orders.ListByUser(ctx, userID, page)
	if err != nil {
		zap.L().Error("failed to list user orders", zap.Int("user_id", userID), zap.Error(err))
		return domain.PageResult[domain.Order]{}, err
	}
	return domain.NewPageResult(items, total, page), nil
}

func (s *Service) ListAll(ctx context.Context, page domain.Page) (domain.PageResult[domain.Order], error) {
	items, total, err := s.orders.List(ctx, page)
	if err != nil {
		zap.L().Error("failed to list orders", zap.Error(err))
		return domain.PageResult[domain.Order]{}, err
	}
	return domain.NewPageResult(items, total, page), nil
}
