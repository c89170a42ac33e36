package paymentservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/paytabs"
	"github.com/GlebRadaev/ratnzer/internal/pg"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/internal/service/pricing"
)

//go:generate mockgen -source=paymentservice.go -destination=mock_paymentservice.go -package=paymentservice

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Payment, error)
	SetTransactionRef(ctx context.Context, id, ref string) error
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, reason *string) (bool, error)
}

type OrderRepo interface {
	ListByPayment(ctx context.Context, paymentID string) ([]domain.Order, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id int) (*domain.User, error)
}

type BalanceRepo interface {
	Credit(ctx context.Context, userID int, amount decimal.Decimal) error
}

type TransactionRepo interface {
	Append(ctx context.Context, t *domain.Transaction) error
}

type CartRepo interface {
	ListByUser(ctx context.Context, userID int) ([]domain.CartItem, error)
	DeleteByIDs(ctx context.Context, userID int, ids []string) error
}

type OrderCreator interface {
	Prepare(ctx context.Context, userID int, sel orderservice.Selection, clientPrice decimal.Decimal) (*orderservice.PlaceInput, error)
	Product(ctx context.Context, id string) (*domain.Product, error)
	PlaceInTx(ctx context.Context, in *orderservice.PlaceInput) (*domain.Order, orderservice.Effects, error)
	RunEffects(ctx context.Context, effects orderservice.Effects) error
}

type Gateway interface {
	CreateSession(ctx context.Context, req paytabs.SessionRequest) (*paytabs.Session, error)
	Verify(ctx context.Context, tranRef string) (*paytabs.Verification, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID int, title, body, category string)
	NotifyAdmins(ctx context.Context, title, body, category string)
}

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrForbidden             = errors.New("payment belongs to another user")
	ErrInvalidAmount         = errors.New("invalid top-up amount")
	ErrInvalidIntent         = errors.New("invalid payment intent")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrPaymentCreationFailed = errors.New("payment could not be created")
)

const (
	providerPayTabs       = "paytabs"
	defaultGatewayTimeout = 10 * time.Second
)

type Config struct {
	Currency       string
	MaxTopUp       decimal.Decimal
	GatewayTimeout time.Duration
}

type Deps struct {
	Payments PaymentRepo
	Orders   OrderRepo
	Users    UserRepo
	Balances BalanceRepo
	Ledger   TransactionRepo
	Cart     CartRepo
	Creator  OrderCreator
	Gateway  Gateway
	Notifier Notifier
	TX       pg.TXManager
	Metrics  *metrics.Metrics
}

type Service struct {
	cfg      Config
	payments PaymentRepo
	orders   OrderRepo
	users    UserRepo
	balances BalanceRepo
	ledger   TransactionRepo
	cart     CartRepo
	creator  OrderCreator
	gateway  Gateway
	notifier Notifier
	tx       pg.TXManager
	metrics  *metrics.Metrics
}

func New(cfg Config, d Deps) *Service {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		cfg:      cfg,
		payments: d.Payments,
		orders:   d.Orders,
		users:    d.Users,
		balances: d.Balances,
		ledger:   d.Ledger,
		cart:     d.Cart,
		creator:  d.Creator,
		gateway:  d.Gateway,
		notifier: d.Notifier,
		tx:       d.TX,
		metrics:  d.Metrics,
	}
}

type CreatePaymentInput struct {
	Intent      domain.PaymentIntent
	Amount      decimal.Decimal
	Selection   orderservice.Selection
	ClientPrice decimal.Decimal
	CartItemIDs []string
}

type CreatedPayment struct {
	Payment     *domain.Payment
	RedirectURL string
	TranRef     string
}

type Result struct {
	Payment *domain.Payment
	Orders  []domain.Order
}

type Callback struct {
	TranRef string
	CartID  string
}

// CreatePayment stores a pending payment with server-priced line items and
// opens a hosted payment page for it.
func (s *Service) CreatePayment(ctx context.Context, userID int, in CreatePaymentInput) (*CreatedPayment, error) {
	if !in.Intent.IsValid() {
		return nil, ErrInvalidIntent
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, orderservice.ErrUserNotFound
	}
	if user.Status == domain.UserBanned {
		return nil, orderservice.ErrUserBanned
	}

	payment := &domain.Payment{
		ID:       uuid.NewString(),
		UserID:   userID,
		Currency: s.cfg.Currency,
		Provider: providerPayTabs,
		Status:   domain.PaymentPending,
		Intent:   in.Intent,
	}

	var description string
	switch in.Intent {
	case domain.IntentTopUp:
		amount := in.Amount.Round(2)
		if !amount.IsPositive() || (s.cfg.MaxTopUp.IsPositive() && amount.GreaterThan(s.cfg.MaxTopUp)) {
			return nil, ErrInvalidAmount
		}
		payment.Amount = amount
		description = "Wallet top-up"
	case domain.IntentSingle:
		prepared, err := s.creator.Prepare(ctx, userID, in.Selection, in.ClientPrice)
		if err != nil {
			return nil, err
		}
		payment.Metadata.Items = []domain.LineItem{lineItem(prepared)}
		payment.Amount = payment.Metadata.Total()
		description = prepared.Product.Name
	case domain.IntentCart:
		items, err := s.cartItems(ctx, userID, in.CartItemIDs)
		if err != nil {
			return nil, err
		}
		payment.Metadata.Items = items
		payment.Amount = payment.Metadata.Total()
		description = "Cart: " + strconv.Itoa(len(items)) + " items"
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, paytabs.SessionRequest{
		PaymentID:     payment.ID,
		Amount:        payment.Amount,
		Description:   description,
		CustomerName:  user.Name,
		CustomerEmail: customerEmail(user.Login),
	})
	if err != nil {
		reason := err.Error()
		if _, uerr := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentFailed, &reason); uerr != nil {
			zap.L().Error("failed to mark payment failed", zap.String("payment_id", payment.ID), zap.Error(uerr))
		}
		s.metrics.PaymentFinalized(string(domain.PaymentFailed))
		zap.L().Error("payment session failed", zap.String("payment_id", payment.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreationFailed, err)
	}

	if session.TranRef != "" {
		if err := s.payments.SetTransactionRef(ctx, payment.ID, session.TranRef); err != nil {
			zap.L().Error("failed to store gateway reference", zap.String("payment_id", payment.ID), zap.Error(err))
		} else {
			payment.TransactionRef = &session.TranRef
		}
	}

	zap.L().Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("intent", string(payment.Intent)),
		zap.String("amount", payment.Amount.String()))

	return &CreatedPayment{
		Payment:     payment,
		RedirectURL: session.RedirectURL,
		TranRef:     session.TranRef,
	}, nil
}

func (s *Service) cartItems(ctx context.Context, userID int, ids []string) ([]domain.LineItem, error) {
	rows, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var items []domain.LineItem
	for _, row := range rows {
		if len(wanted) > 0 && !wanted[row.ID] {
			continue
		}
		if !row.Price.IsPositive() {
			return nil, orderservice.ErrInvalidPrice
		}
		product, err := s.creator.Product(ctx, row.ProductID)
		if err != nil {
			return nil, err
		}
		regionID := domain.StringValue(row.RegionID)
		custom := strings.TrimSpace(domain.StringValue(row.CustomInputValue))
		if ci := product.ActiveCustomInput(regionID); ci != nil && ci.Enabled && ci.Required && custom == "" {
			return nil, orderservice.ErrCustomInputRequired
		}
		var regionName string
		if r := product.Region(regionID); r != nil {
			regionName = r.Name
		}
		items = append(items, domain.LineItem{
			ProductID:        product.ID,
			ProductName:      product.Name,
			RegionID:         regionID,
			RegionName:       regionName,
			DenominationID:   domain.StringValue(row.DenominationID),
			QuantityLabel:    domain.StringValue(row.QuantityLabel),
			Denomination:     row.Denomination,
			Price:            row.Price,
			Quantity:         max(1, row.Quantity),
			CustomInputValue: custom,
			CartItemID:       row.ID,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

func lineItem(in *orderservice.PlaceInput) domain.LineItem {
	sel := in.Selection
	return domain.LineItem{
		ProductID:        in.Product.ID,
		ProductName:      in.Product.Name,
		RegionID:         sel.RegionID,
		RegionName:       sel.RegionName,
		DenominationID:   sel.DenominationID,
		QuantityLabel:    sel.QuantityLabel,
		Denomination:     pricingSnapshot(in),
		Price:            in.Amount,
		Quantity:         1,
		CustomInputValue: sel.CustomInputValue,
	}
}

// pricingSnapshot keeps the matched denomination so the stored line item can
// be priced again without the catalog.
func pricingSnapshot(in *orderservice.PlaceInput) domain.Attrs {
	if in.Selection.Denomination != nil {
		return in.Selection.Denomination
	}
	key := in.Selection.DenominationID
	if key == "" {
		key = in.Selection.QuantityLabel
	}
	if key == "" {
		return nil
	}
	return pricing.Match(in.Product.ForRegion(in.Selection.RegionID), key)
}

func customerEmail(login string) string {
	if strings.Contains(login, "@") {
		return login
	}
	return ""
}
