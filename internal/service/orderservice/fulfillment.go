package orderservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/kd1s"
)

type UpdateStatusInput struct {
	Status          domain.OrderStatus
	DeliveredCode   string
	RejectionReason string
}

// RunEffects submits provider orders and sends notices of a committed
// transaction. A failed dispatch refunds only its own order. The returned
// error wraps ErrProviderFailed when at least one dispatch failed.
//
// The work outlives ctx: the debit is already committed, so a disconnected
// caller must not stop the refund or the provider id update.
func (s *Service) RunEffects(ctx context.Context, effects Effects) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), effectsTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		errs   []error
		failed = make(map[string]bool)
	)

	var g errgroup.Group
	g.SetLimit(dispatchLimit)
	for _, d := range effects.Dispatches {
		g.Go(func() error {
			if err := s.dispatch(ctx, d); err != nil {
				mu.Lock()
				errs = append(errs, err)
				failed[d.OrderID] = true
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, n := range effects.Notices {
		if failed[n.OrderID] {
			continue
		}
		s.notice(ctx, n)
	}

	return errors.Join(errs...)
}

func (s *Service) dispatch(ctx context.Context, d Dispatch) error {
	providerOrderID, err := s.dispatcher.PlaceOrder(ctx, d.ServiceID, d.Link, d.Quantity)
	if err != nil {
		s.metrics.Dispatched(false)
		zap.L().Error("provider rejected order", zap.String("order_id", d.OrderID), zap.Error(err))

		if _, rerr := s.Refund(ctx, d.OrderID, "KD1S: "+err.Error()); rerr != nil {
			zap.L().Error("failed to refund order after provider failure", zap.String("order_id", d.OrderID), zap.Error(rerr))
			return errors.Join(fmt.Errorf("%w: %s", ErrProviderFailed, err.Error()), rerr)
		}
		return fmt.Errorf("%w: %s", ErrProviderFailed, err.Error())
	}
	s.metrics.Dispatched(true)

	providerName := d.ProviderName
	if providerName == "" {
		providerName = kd1s.ProviderName
	}

	err = s.tx.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if order == nil || order.Status != domain.OrderPending {
			return nil
		}
		order.ProviderOrderID = &providerOrderID
		order.ProviderName = &providerName
		order.FulfillmentType = domain.FulfillmentAPI
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		// The provider already holds the order; an admin reconciles it by hand.
		zap.L().Error("failed to store provider order id",
			zap.String("order_id", d.OrderID),
			zap.String("provider_order_id", providerOrderID),
			zap.Error(err))
		return nil
	}

	zap.L().Info("order dispatched to provider",
		zap.String("order_id", d.OrderID),
		zap.String("provider_order_id", providerOrderID))
	return nil
}

// Refund cancels a pending order and returns its amount to the wallet. It is
// a no-op for orders that are no longer pending.
func (s *Service) Refund(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	var (
		order    *domain.Order
		refunded bool
	)
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != domain.OrderPending {
			return nil
		}
		refunded = true
		return s.refundLocked(ctx, order, reason)
	})
	if err != nil {
		return nil, err
	}

	if refunded {
		s.afterRefund(ctx, order)
	}
	return order, nil
}

func (s *Service) refundLocked(ctx context.Context, order *domain.Order, reason string) error {
	if err := s.balances.Credit(ctx, order.UserID, order.Amount); err != nil {
		return err
	}

	entry := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    order.UserID,
		Title:     "Refund: " + order.ProductName,
		Amount:    order.Amount,
		Type:      domain.TransactionCredit,
		Status:    domain.TransactionCompleted,
		PaymentID: order.PaymentID,
		OrderID:   &order.ID,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return err
	}

	order.Status = domain.OrderCancelled
	order.RejectionReason = domain.StringPtr(reason)
	return s.orders.Update(ctx, order)
}

func (s *Service) afterRefund(ctx context.Context, order *domain.Order) {
	s.metrics.OrderRefunded()
	zap.L().Info("order refunded",
		zap.String("order_id", order.ID),
		zap.String("amount", order.Amount.String()),
		zap.String("reason", domain.StringValue(order.RejectionReason)))
	s.notice(ctx, userOrderNotice(order))
}

// UpdateStatus is the admin resolution of an order. Completing stores the
// delivered code once, cancelling refunds the wallet.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, in UpdateStatusInput) (*domain.Order, error) {
	if in.Status != domain.OrderCompleted && in.Status != domain.OrderCancelled {
		return nil, ErrInvalidStatus
	}

	var (
		order    *domain.Order
		refunded bool
	)
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == in.Status {
			return ErrOrderAlreadyFinal
		}

		switch in.Status {
		case domain.OrderCompleted:
			if order.Status == domain.OrderCancelled {
				return ErrOrderAlreadyFinal
			}
			order.Status = domain.OrderCompleted
			order.FulfillmentType = domain.FulfillmentManual
			if order.DeliveredCode == nil {
				order.DeliveredCode = domain.StringPtr(in.DeliveredCode)
			}
			return s.orders.Update(ctx, order)
		default:
			refunded = true
			return s.refundLocked(ctx, order, in.RejectionReason)
		}
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order status updated by admin", zap.String("order_id", orderID), zap.String("status", string(order.Status)))
	if refunded {
		s.afterRefund(ctx, order)
	} else {
		s.notice(ctx, userOrderNotice(order))
	}
	return order, nil
}

// MarkCompletedByProvider completes a pending order the provider reports as
// done. It reports whether the order changed.
func (s *Service) MarkCompletedByProvider(ctx context.Context, orderID string) (bool, error) {
	var order *domain.Order
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != domain.OrderPending {
			order = nil
			return nil
		}
		order.Status = domain.OrderCompleted
		return s.orders.Update(ctx, order)
	})
	if err != nil || order == nil {
		return false, err
	}

	s.notice(ctx, userOrderNotice(order))
	return true, nil
}

func (s *Service) notice(ctx context.Context, n Notice) {
	if s.notifier == nil {
		return
	}
	if n.Admin {
		s.notifier.NotifyAdmins(ctx, n.Title, n.Body, n.Category)
		return
	}
	s.notifier.NotifyUser(ctx, n.UserID, n.Title, n.Body, n.Category)
}
