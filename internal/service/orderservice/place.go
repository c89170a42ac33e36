package orderservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/kd1s"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

// Dispatch is a provider order to submit once the order row is committed.
type Dispatch struct {
	OrderID      string
	UserID       int
	ProductName  string
	ServiceID    string
	ProviderName string
	Link         string
	Quantity     int
}

type Notice struct {
	OrderID  string
	UserID   int
	Admin    bool
	Title    string
	Body     string
	Category string
}

// Effects are the side effects of a committed ledger transaction.
type Effects struct {
	Dispatches []Dispatch
	Notices    []Notice
}

func (e *Effects) Merge(other Effects) {
	e.Dispatches = append(e.Dispatches, other.Dispatches...)
	e.Notices = append(e.Notices, other.Notices...)
}

// PlaceInTx writes one order. It must run inside a transaction: the debit,
// the inventory claim, the order row and the ledger row commit together.
func (s *Service) PlaceInTx(ctx context.Context, in *PlaceInput) (*domain.Order, Effects, error) {
	var effects Effects
	product := in.Product
	sel := in.Selection

	ok, err := s.balances.Debit(ctx, in.UserID, in.Amount)
	if err != nil {
		return nil, effects, err
	}
	if !ok {
		zap.L().Info("insufficient balance", zap.Int("user_id", in.UserID), zap.String("amount", in.Amount.String()))
		return nil, effects, ErrInsufficientBalance
	}

	order := &domain.Order{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		ProductID:        product.ID,
		ProductName:      product.Name,
		RegionID:         domain.StringPtr(sel.RegionID),
		RegionName:       domain.StringPtr(sel.RegionName),
		DenominationID:   domain.StringPtr(sel.DenominationID),
		QuantityLabel:    domain.StringPtr(sel.QuantityLabel),
		CustomInputValue: domain.StringPtr(sel.CustomInputValue),
		Amount:           in.Amount,
		Status:           domain.OrderPending,
		FulfillmentType:  product.Fulfillment(),
		ProviderName:     domain.StringPtr(product.ProviderName()),
		PaymentID:        domain.StringPtr(in.PaymentID),
	}

	var code *domain.InventoryCode
	if product.AutoDeliverStock {
		code, err = s.inventory.Claim(ctx, product.ID, order.RegionID, order.DenominationID)
		if err != nil {
			return nil, effects, err
		}
		if code != nil {
			order.Status = domain.OrderCompleted
			order.FulfillmentType = domain.FulfillmentStock
			order.DeliveredCode = &code.Code
		}
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, effects, err
	}

	if code != nil {
		if err := s.linkCode(ctx, code.ID, order.ID); err != nil {
			return nil, effects, err
		}
	}

	entry := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     "Purchase: " + product.Name,
		Amount:    in.Amount,
		Type:      domain.TransactionDebit,
		Status:    domain.TransactionCompleted,
		PaymentID: order.PaymentID,
		OrderID:   &order.ID,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, effects, err
	}

	if order.Status == domain.OrderPending && order.FulfillmentType == domain.FulfillmentAPI && product.ServiceID() != "" {
		effects.Dispatches = append(effects.Dispatches, Dispatch{
			OrderID:      order.ID,
			UserID:       order.UserID,
			ProductName:  product.Name,
			ServiceID:    product.ServiceID(),
			ProviderName: product.ProviderName(),
			Link:         dispatchLink(sel, product),
			Quantity:     kd1s.ParseQuantity(sel.QuantityLabel),
		})
	}
	effects.Notices = append(effects.Notices, userOrderNotice(order))

	return order, effects, nil
}

// linkCode stamps the order on a claimed code inside a savepoint. A constraint
// violation leaves the code consumed but unlinked.
func (s *Service) linkCode(ctx context.Context, codeID, orderID string) error {
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		return s.inventory.LinkOrder(ctx, codeID, orderID)
	})
	var violation *pg.ConstraintViolation
	if errors.As(err, &violation) {
		zap.L().Warn("inventory code consumed without order link",
			zap.String("code_id", codeID),
			zap.String("order_id", orderID),
			zap.String("kind", string(violation.Kind)),
			zap.Error(err))
		return nil
	}
	return err
}

func dispatchLink(sel Selection, product *domain.Product) string {
	switch {
	case sel.CustomInputValue != "":
		return sel.CustomInputValue
	case sel.RegionName != "":
		return sel.RegionName
	}
	return product.Name
}

func userOrderNotice(o *domain.Order) Notice {
	n := Notice{OrderID: o.ID, UserID: o.UserID, Category: "order"}
	switch o.Status {
	case domain.OrderCompleted:
		n.Title = "Order completed"
		n.Body = o.ProductName + " has been delivered."
	case domain.OrderCancelled:
		n.Title = "Order cancelled"
		n.Body = o.ProductName + " was cancelled and refunded to your wallet."
	default:
		n.Title = "Order received"
		n.Body = o.ProductName + " is being processed."
	}
	return n
}

func adminOrderNotice(o *domain.Order) Notice {
	return Notice{
		OrderID:  o.ID,
		Admin:    true,
		Title:    "New order",
		Body:     o.ProductName + " for " + o.Amount.StringFixed(2),
		Category: "admin_order",
	}
}
