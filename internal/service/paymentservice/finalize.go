package paymentservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/paytabs"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
)

// Finalize applies a gateway verdict to a payment. It is safe to call any
// number of times and concurrently: only the first approved or declined call
// changes anything, the rest read back the stored outcome.
func (s *Service) Finalize(ctx context.Context, paymentID, gatewayRef string, v *paytabs.Verification) (*Result, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status.IsTerminal() {
		return s.result(ctx, payment)
	}

	verdict := paytabs.VerdictPending
	if v != nil {
		verdict = v.Verdict
		if gatewayRef == "" {
			gatewayRef = v.TranRef
		}
	}

	switch verdict {
	case paytabs.VerdictApproved:
		if err := s.approve(ctx, paymentID, gatewayRef); err != nil {
			return nil, err
		}
	case paytabs.VerdictDeclined:
		reason := "declined"
		if v.ResponseMessage != "" {
			reason = v.ResponseMessage
		}
		if err := s.decline(ctx, paymentID, gatewayRef, reason); err != nil {
			return nil, err
		}
	default:
		return s.result(ctx, payment)
	}

	return s.load(ctx, paymentID)
}

func (s *Service) decline(ctx context.Context, paymentID, gatewayRef, reason string) error {
	var payment *domain.Payment
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		cur, err := s.payments.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrPaymentNotFound
		}
		if cur.Status != domain.PaymentPending {
			return nil
		}
		changed, err := s.payments.UpdateStatus(ctx, paymentID, domain.PaymentFailed, &reason)
		if err != nil || !changed {
			return err
		}
		if err := s.storeRef(ctx, paymentID, gatewayRef); err != nil {
			return err
		}
		payment = cur
		return nil
	})
	if err != nil || payment == nil {
		return err
	}

	s.metrics.PaymentFinalized(string(domain.PaymentFailed))
	zap.L().Info("payment declined", zap.String("payment_id", paymentID), zap.String("reason", reason))
	s.notifyUser(ctx, payment.UserID, "Payment failed", "Your payment of "+payment.Amount.StringFixed(2)+" was not completed.")
	return nil
}

func (s *Service) approve(ctx context.Context, paymentID, gatewayRef string) error {
	var (
		payment *domain.Payment
		placed  []*domain.Order
		effects orderservice.Effects
	)
	err := s.tx.Begin(ctx, func(ctx context.Context) error {
		cur, err := s.payments.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrPaymentNotFound
		}
		if cur.Status != domain.PaymentPending {
			return nil
		}
		changed, err := s.payments.UpdateStatus(ctx, paymentID, domain.PaymentSucceeded, nil)
		if err != nil || !changed {
			return err
		}
		if err := s.storeRef(ctx, paymentID, gatewayRef); err != nil {
			return err
		}

		if cur.Intent == domain.IntentTopUp {
			payment = cur
			return s.credit(ctx, cur, "Wallet top-up")
		}

		if err := s.credit(ctx, cur, "Card payment"); err != nil {
			return err
		}
		for _, item := range cur.Metadata.Items {
			in := &orderservice.PlaceInput{
				UserID:    cur.UserID,
				Product:   s.productFor(ctx, item),
				Selection: selection(item),
				Amount:    item.Price,
				PaymentID: cur.ID,
			}
			for i := 0; i < max(1, item.Quantity); i++ {
				order, eff, err := s.creator.PlaceInTx(ctx, in)
				if err != nil {
					return err
				}
				placed = append(placed, order)
				effects.Merge(eff)
			}
		}
		if ids := cur.Metadata.CartItemIDs(); len(ids) > 0 {
			if err := s.cart.DeleteByIDs(ctx, cur.UserID, ids); err != nil {
				return err
			}
		}
		payment = cur
		return nil
	})
	if err != nil {
		zap.L().Error("failed to finalize payment", zap.String("payment_id", paymentID), zap.Error(err))
		return err
	}
	if payment == nil {
		return nil
	}

	s.metrics.PaymentFinalized(string(domain.PaymentSucceeded))
	zap.L().Info("payment succeeded",
		zap.String("payment_id", paymentID),
		zap.String("intent", string(payment.Intent)),
		zap.Int("orders", len(placed)))

	for _, order := range placed {
		s.metrics.OrderCreated(string(order.FulfillmentType))
		effects.Notices = append(effects.Notices, orderservice.Notice{
			OrderID:  order.ID,
			Admin:    true,
			Title:    "New order",
			Body:     order.ProductName + " paid by card",
			Category: "admin_order",
		})
	}
	if err := s.creator.RunEffects(ctx, effects); err != nil {
		zap.L().Warn("some card orders were refunded to the wallet", zap.String("payment_id", paymentID), zap.Error(err))
	}

	body := "Your payment of " + payment.Amount.StringFixed(2) + " was successful."
	if payment.Intent == domain.IntentTopUp {
		body = payment.Amount.StringFixed(2) + " was added to your wallet."
	}
	s.notifyUser(ctx, payment.UserID, "Payment successful", body)
	return nil
}

func (s *Service) credit(ctx context.Context, p *domain.Payment, title string) error {
	if err := s.balances.Credit(ctx, p.UserID, p.Amount); err != nil {
		return err
	}
	return s.ledger.Append(ctx, &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    p.UserID,
		Title:     title,
		Amount:    p.Amount,
		Type:      domain.TransactionCredit,
		Status:    domain.TransactionCompleted,
		PaymentID: &p.ID,
	})
}

func (s *Service) storeRef(ctx context.Context, paymentID, ref string) error {
	if ref == "" {
		return nil
	}
	return s.payments.SetTransactionRef(ctx, paymentID, ref)
}

// productFor falls back to the line item snapshot when the product left the
// catalog after the payment was created. Such orders are resolved manually.
func (s *Service) productFor(ctx context.Context, item domain.LineItem) *domain.Product {
	product, err := s.creator.Product(ctx, item.ProductID)
	if err == nil {
		return product
	}
	if !errors.Is(err, orderservice.ErrProductNotFound) {
		zap.L().Warn("product lookup failed during finalize", zap.String("product_id", item.ProductID), zap.Error(err))
	}
	return &domain.Product{ID: item.ProductID, Name: item.ProductName}
}

func selection(item domain.LineItem) orderservice.Selection {
	return orderservice.Selection{
		ProductID:        item.ProductID,
		RegionID:         item.RegionID,
		RegionName:       item.RegionName,
		DenominationID:   item.DenominationID,
		QuantityLabel:    item.QuantityLabel,
		CustomInputValue: item.CustomInputValue,
		Denomination:     item.Denomination,
	}
}

// Reconcile asks the gateway about a pending payment and finalizes it with the
// answer. Gateway failures leave the payment pending.
func (s *Service) Reconcile(ctx context.Context, paymentID, gatewayRef string) (*Result, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.Status.IsTerminal() {
		return s.result(ctx, payment)
	}

	ref := gatewayRef
	if ref == "" {
		ref = domain.StringValue(payment.TransactionRef)
	}
	if ref == "" {
		return s.result(ctx, payment)
	}

	vctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	v, err := s.gateway.Verify(vctx, ref)
	if err != nil {
		zap.L().Warn("payment verification unavailable", zap.String("payment_id", paymentID), zap.Error(err))
		return s.result(ctx, payment)
	}
	if v.CartID != payment.ID {
		zap.L().Warn("gateway reference belongs to another cart",
			zap.String("payment_id", paymentID),
			zap.String("cart_id", v.CartID))
		return s.result(ctx, payment)
	}

	return s.Finalize(ctx, paymentID, ref, v)
}

// Status is the polling fallback for a missed callback.
func (s *Service) Status(ctx context.Context, userID int, paymentID string) (*Result, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.UserID != userID {
		return nil, ErrForbidden
	}
	return s.Reconcile(ctx, paymentID, "")
}

// HandleCallback never trusts the callback body: it only locates the payment
// and verifies it with the gateway.
func (s *Service) HandleCallback(ctx context.Context, cb Callback) (*Result, error) {
	var (
		payment *domain.Payment
		err     error
	)
	if cb.CartID != "" {
		if payment, err = s.payments.GetByID(ctx, cb.CartID); err != nil {
			return nil, err
		}
	}
	if payment == nil && cb.TranRef != "" {
		if payment, err = s.payments.GetByTransactionRef(ctx, cb.TranRef); err != nil {
			return nil, err
		}
	}
	if payment == nil {
		zap.L().Warn("callback for unknown payment", zap.String("cart_id", cb.CartID), zap.String("tran_ref", cb.TranRef))
		return nil, ErrPaymentNotFound
	}
	return s.Reconcile(ctx, payment.ID, cb.TranRef)
}

func (s *Service) load(ctx context.Context, paymentID string) (*Result, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return s.result(ctx, payment)
}

func (s *Service) result(ctx context.Context, payment *domain.Payment) (*Result, error) {
	res := &Result{Payment: payment}
	if payment.Intent == domain.IntentTopUp {
		return res, nil
	}
	orders, err := s.orders.ListByPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	res.Orders = orders
	return res, nil
}

func (s *Service) notifyUser(ctx context.Context, userID int, title, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyUser(ctx, userID, title, body, "payment")
}
