package paymentservice_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/notify"
	"github.com/GlebRadaev/ratnzer/internal/paytabs"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/internal/service/paymentservice"
	"github.com/GlebRadaev/ratnzer/internal/testutil/memstore"
)

type fakeGateway struct {
	mu        sync.Mutex
	next      int
	carts     map[string]string
	verdicts  map[string]paytabs.Verdict
	verifyErr error
	block     bool
	verifies  atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{carts: map[string]string{}, verdicts: map[string]paytabs.Verdict{}}
}

func (g *fakeGateway) CreateSession(_ context.Context, req paytabs.SessionRequest) (*paytabs.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	ref := fmt.Sprintf("TST%04d", g.next)
	g.carts[ref] = req.PaymentID
	return &paytabs.Session{
		TranRef:     ref,
		RedirectURL: "https://secure.paytabs.com/payment/page/" + ref,
		Amount:      req.Amount,
		Currency:    "USD",
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, ref string) (*paytabs.Verification, error) {
	g.verifies.Add(1)
	g.mu.Lock()
	block, verifyErr := g.block, g.verifyErr
	v := &paytabs.Verification{TranRef: ref, CartID: g.carts[ref], Verdict: g.verdicts[ref]}
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if verifyErr != nil {
		return nil, verifyErr
	}
	if v.Verdict == "" {
		v.Verdict = paytabs.VerdictPending
	}
	if v.Verdict == paytabs.VerdictDeclined {
		v.ResponseMessage = "Insufficient funds"
	}
	return v, nil
}

func (g *fakeGateway) set(ref string, v paytabs.Verdict) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verdicts[ref] = v
}

func (g *fakeGateway) cart(ref, cartID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.carts[ref] = cartID
}

type fakeDispatcher struct {
	mu    sync.Mutex
	fail  map[string]error
	calls int
}

func (d *fakeDispatcher) PlaceOrder(_ context.Context, serviceID, _ string, _ int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if err := d.fail[serviceID]; err != nil {
		return "", err
	}
	return fmt.Sprintf("kd-%d", d.calls), nil
}

type PaymentScenarioSuite struct {
	suite.Suite
	store      *memstore.Store
	gateway    *fakeGateway
	dispatcher *fakeDispatcher
	notifier   *notify.Service
	service    *paymentservice.Service
	user       domain.User
}

func (s *PaymentScenarioSuite) SetupTest() {
	s.store = memstore.New()
	s.gateway = newFakeGateway()
	s.dispatcher = &fakeDispatcher{fail: map[string]error{}}
	s.notifier = notify.New(s.store.Notifications, s.store.Users, nil, 0)

	orders := orderservice.New(orderservice.Deps{
		Users:      s.store.Users,
		Balances:   s.store.Balances,
		Orders:     s.store.Orders,
		Inventory:  s.store.Inventory,
		Ledger:     s.store.Ledger,
		Products:   s.store.Products,
		TX:         s.store.TX,
		Dispatcher: s.dispatcher,
		Notifier:   s.notifier,
	})
	s.service = paymentservice.New(paymentservice.Config{
		MaxTopUp:       decimal.NewFromInt(1000),
		GatewayTimeout: 50 * time.Millisecond,
	}, paymentservice.Deps{
		Payments: s.store.Payments,
		Orders:   s.store.Orders,
		Users:    s.store.Users,
		Balances: s.store.Balances,
		Ledger:   s.store.Ledger,
		Cart:     s.store.Cart,
		Creator:  orders,
		Gateway:  s.gateway,
		Notifier: s.notifier,
		TX:       s.store.TX,
	})

	s.user = s.store.AddUser(domain.User{Login: "buyer@example.com"})
	s.store.AddProduct(domain.Product{
		ID:    "gift",
		Name:  "Gift card",
		Price: decimal.NewNullDecimal(decimal.NewFromInt(10)),
	})
	s.store.AddProduct(domain.Product{
		ID:        "uc",
		Name:      "PUBG UC",
		Price:     decimal.NewNullDecimal(decimal.NewFromInt(5)),
		APIConfig: &domain.APIConfig{Type: domain.FulfillmentAPI, ServiceID: "77"},
	})
}

func (s *PaymentScenarioSuite) TearDownTest() {
	s.notifier.Wait()
}

func (s *PaymentScenarioSuite) single(productID string) *paymentservice.CreatedPayment {
	created, err := s.service.CreatePayment(context.Background(), s.user.ID, paymentservice.CreatePaymentInput{
		Intent:    domain.IntentSingle,
		Selection: orderservice.Selection{ProductID: productID},
	})
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, created.Payment.Status)
	return created
}

func (s *PaymentScenarioSuite) assertConservation() {
	balance := s.store.Balance(s.user.ID)
	s.True(balance.Equal(s.store.LedgerSum(s.user.ID)), "balance %s != ledger %s", balance, s.store.LedgerSum(s.user.ID))
	s.False(balance.IsNegative())
}

func (s *PaymentScenarioSuite) countTx(typ domain.TransactionType) int {
	n := 0
	for _, t := range s.store.Transactions(s.user.ID) {
		if t.Type == typ {
			n++
		}
	}
	return n
}

// Two concurrent verifications of the same approved payment produce one set
// of side effects.
func (s *PaymentScenarioSuite) TestConcurrentApprovalAppliesOnce() {
	created := s.single("gift")
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)

	var wg sync.WaitGroup
	results := make([]*paymentservice.Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
		}(i)
	}
	wg.Wait()

	for i := range results {
		s.Require().NoError(errs[i])
		s.Equal(domain.PaymentSucceeded, results[i].Payment.Status)
		s.Len(results[i].Orders, 1)
	}
	s.Len(s.store.AllOrders(), 1)
	s.Equal(1, s.countTx(domain.TransactionCredit))
	s.Equal(1, s.countTx(domain.TransactionDebit))
	s.True(s.store.Balance(s.user.ID).IsZero())
	s.assertConservation()
}

func (s *PaymentScenarioSuite) TestRepeatedFinalizeIsNoop() {
	created := s.single("gift")
	approved := &paytabs.Verification{TranRef: created.TranRef, CartID: created.Payment.ID, Verdict: paytabs.VerdictApproved}

	first, err := s.service.Finalize(context.Background(), created.Payment.ID, created.TranRef, approved)
	s.Require().NoError(err)
	second, err := s.service.Finalize(context.Background(), created.Payment.ID, created.TranRef, approved)
	s.Require().NoError(err)

	s.Equal(first.Payment.Status, second.Payment.Status)
	s.Equal(first.Orders[0].ID, second.Orders[0].ID)
	s.Len(s.store.AllOrders(), 1)
	s.Len(s.store.Transactions(s.user.ID), 2)

	declined, err := s.service.Finalize(context.Background(), created.Payment.ID, created.TranRef,
		&paytabs.Verification{Verdict: paytabs.VerdictDeclined})
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, declined.Payment.Status)
}

func (s *PaymentScenarioSuite) TestDeclined() {
	created := s.single("gift")
	s.gateway.set(created.TranRef, paytabs.VerdictDeclined)

	res, err := s.service.Status(context.Background(), s.user.ID, created.Payment.ID)
	s.Require().NoError(err)

	s.Equal(domain.PaymentFailed, res.Payment.Status)
	s.Equal("Insufficient funds", domain.StringValue(res.Payment.FailureReason))
	s.Empty(res.Orders)
	s.Empty(s.store.Transactions(s.user.ID))

	var titles []string
	for _, n := range s.store.UserNotifications(s.user.ID) {
		titles = append(titles, n.Title)
	}
	s.Contains(titles, "Payment failed")
}

func (s *PaymentScenarioSuite) TestPendingVerdictChangesNothing() {
	created := s.single("gift")

	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, "")
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, res.Payment.Status)
	s.Empty(s.store.AllOrders())
}

func (s *PaymentScenarioSuite) TestVerificationErrorStaysPending() {
	created := s.single("gift")
	s.gateway.verifyErr = errors.New("payment gateway error: upstream unavailable")

	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, res.Payment.Status)
	s.Empty(s.store.AllOrders())
}

func (s *PaymentScenarioSuite) TestVerificationTimeoutStaysPending() {
	created := s.single("gift")
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)
	s.gateway.block = true

	start := time.Now()
	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().NoError(err)
	s.Less(time.Since(start), 2*time.Second)
	s.Equal(domain.PaymentPending, res.Payment.Status)

	s.gateway.block = false
	res, err = s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, res.Payment.Status)
}

func (s *PaymentScenarioSuite) TestCartMismatchStaysPending() {
	created := s.single("gift")
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)
	s.gateway.cart(created.TranRef, "someone-else")

	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().NoError(err)
	s.Equal(domain.PaymentPending, res.Payment.Status)
	s.Empty(s.store.AllOrders())
	s.Empty(s.store.Transactions(s.user.ID))
}

func (s *PaymentScenarioSuite) TestTopUpByCallback() {
	created, err := s.service.CreatePayment(context.Background(), s.user.ID, paymentservice.CreatePaymentInput{
		Intent: domain.IntentTopUp,
		Amount: decimal.RequireFromString("25.50"),
	})
	s.Require().NoError(err)
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)

	res, err := s.service.HandleCallback(context.Background(), paymentservice.Callback{TranRef: created.TranRef})
	s.Require().NoError(err)

	s.Equal(domain.PaymentSucceeded, res.Payment.Status)
	s.Equal("25.5", s.store.Balance(s.user.ID).String())
	txs := s.store.Transactions(s.user.ID)
	s.Require().Len(txs, 1)
	s.Equal("Wallet top-up", txs[0].Title)
	s.Equal(created.Payment.ID, domain.StringValue(txs[0].PaymentID))
	s.Empty(s.store.AllOrders())
	s.assertConservation()
}

func (s *PaymentScenarioSuite) TestCallbackForUnknownPayment() {
	_, err := s.service.HandleCallback(context.Background(), paymentservice.Callback{TranRef: "TST9999", CartID: "missing"})
	s.ErrorIs(err, paymentservice.ErrPaymentNotFound)
	s.Zero(s.gateway.verifies.Load())
}

// One failing provider line in a cart refunds only its own order.
func (s *PaymentScenarioSuite) TestCartWithPartialDispatchFailure() {
	s.store.AddCartItem(domain.CartItem{ID: "ci-1", UserID: s.user.ID, ProductID: "gift", Name: "Gift card", Price: decimal.NewFromInt(10), Quantity: 2})
	s.store.AddCartItem(domain.CartItem{ID: "ci-2", UserID: s.user.ID, ProductID: "uc", Name: "PUBG UC", Price: decimal.NewFromInt(5), Quantity: 1})
	s.store.AddCartItem(domain.CartItem{ID: "ci-3", UserID: s.user.ID, ProductID: "gift", Name: "Gift card", Price: decimal.NewFromInt(10), Quantity: 1})
	s.dispatcher.fail["77"] = errors.New("KD1S error: Not enough funds on balance")

	created, err := s.service.CreatePayment(context.Background(), s.user.ID, paymentservice.CreatePaymentInput{
		Intent:      domain.IntentCart,
		CartItemIDs: []string{"ci-1", "ci-2"},
	})
	s.Require().NoError(err)
	s.Equal("25", created.Payment.Amount.String())
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)

	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, "")
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, res.Payment.Status)
	s.Require().Len(res.Orders, 3)

	var pending, cancelled int
	for _, o := range res.Orders {
		s.Equal(created.Payment.ID, domain.StringValue(o.PaymentID))
		switch o.Status {
		case domain.OrderPending:
			pending++
			s.Equal("gift", o.ProductID)
		case domain.OrderCancelled:
			cancelled++
			s.Equal("uc", o.ProductID)
			s.Contains(domain.StringValue(o.RejectionReason), "Not enough funds")
		}
	}
	s.Equal(2, pending)
	s.Equal(1, cancelled)

	s.Equal("5", s.store.Balance(s.user.ID).String())
	s.assertConservation()

	left := s.store.CartItems(s.user.ID)
	s.Require().Len(left, 1)
	s.Equal("ci-3", left[0].ID)
}

func (s *PaymentScenarioSuite) TestOrderFailureRollsBackApproval() {
	created := s.single("gift")
	s.gateway.set(created.TranRef, paytabs.VerdictApproved)
	s.store.Fail("orders.Create", memstore.ErrInjected)

	_, err := s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().ErrorIs(err, memstore.ErrInjected)

	p, ok := s.store.Payment(created.Payment.ID)
	s.Require().True(ok)
	s.Equal(domain.PaymentPending, p.Status)
	s.Empty(s.store.Transactions(s.user.ID))
	s.True(s.store.Balance(s.user.ID).IsZero())

	s.store.Fail("orders.Create", nil)
	res, err := s.service.Reconcile(context.Background(), created.Payment.ID, created.TranRef)
	s.Require().NoError(err)
	s.Equal(domain.PaymentSucceeded, res.Payment.Status)
	s.Len(res.Orders, 1)
}

func TestPaymentScenarioSuite(t *testing.T) {
	suite.Run(t, new(PaymentScenarioSuite))
}
