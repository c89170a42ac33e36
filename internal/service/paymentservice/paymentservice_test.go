package paymentservice

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/paytabs"
	"github.com/GlebRadaev/ratnzer/internal/pg"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
)

type mocks struct {
	payments *MockPaymentRepo
	orders   *MockOrderRepo
	users    *MockUserRepo
	balances *MockBalanceRepo
	ledger   *MockTransactionRepo
	cart     *MockCartRepo
	creator  *MockOrderCreator
	gateway  *MockGateway
	notifier *MockNotifier
	tx       *pg.MockTXManager
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		payments: NewMockPaymentRepo(ctrl),
		orders:   NewMockOrderRepo(ctrl),
		users:    NewMockUserRepo(ctrl),
		balances: NewMockBalanceRepo(ctrl),
		ledger:   NewMockTransactionRepo(ctrl),
		cart:     NewMockCartRepo(ctrl),
		creator:  NewMockOrderCreator(ctrl),
		gateway:  NewMockGateway(ctrl),
		notifier: NewMockNotifier(ctrl),
		tx:       pg.NewMockTXManager(ctrl),
	}
	m.tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	}).AnyTimes()

	service := New(Config{MaxTopUp: decimal.NewFromInt(500)}, Deps{
		Payments: m.payments,
		Orders:   m.orders,
		Users:    m.users,
		Balances: m.balances,
		Ledger:   m.ledger,
		Cart:     m.cart,
		Creator:  m.creator,
		Gateway:  m.gateway,
		Notifier: m.notifier,
		TX:       m.tx,
	})
	return service, m
}

func TestCreatePayment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      CreatePaymentInput
		setup   func(m *mocks)
		wantErr error
	}{
		{
			name:    "unknown intent",
			in:      CreatePaymentInput{Intent: "gift"},
			wantErr: ErrInvalidIntent,
		},
		{
			name: "topup zero",
			in:   CreatePaymentInput{Intent: domain.IntentTopUp, Amount: decimal.Zero},
			setup: func(m *mocks) {
				m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1}, nil)
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "topup above limit",
			in:   CreatePaymentInput{Intent: domain.IntentTopUp, Amount: decimal.NewFromInt(501)},
			setup: func(m *mocks) {
				m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1}, nil)
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "banned user",
			in:   CreatePaymentInput{Intent: domain.IntentTopUp, Amount: decimal.NewFromInt(5)},
			setup: func(m *mocks) {
				m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1, Status: domain.UserBanned}, nil)
			},
			wantErr: orderservice.ErrUserBanned,
		},
		{
			name: "empty cart",
			in:   CreatePaymentInput{Intent: domain.IntentCart},
			setup: func(m *mocks) {
				m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1}, nil)
				m.cart.EXPECT().ListByUser(gomock.Any(), 1).Return(nil, nil)
			},
			wantErr: ErrEmptyCart,
		},
		{
			name: "single priced at zero",
			in:   CreatePaymentInput{Intent: domain.IntentSingle, Selection: orderservice.Selection{ProductID: "p"}},
			setup: func(m *mocks) {
				m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1}, nil)
				m.creator.EXPECT().Prepare(gomock.Any(), 1, gomock.Any(), gomock.Any()).Return(nil, orderservice.ErrInvalidPrice)
			},
			wantErr: orderservice.ErrInvalidPrice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t)
			if tt.setup != nil {
				tt.setup(m)
			}
			_, err := service.CreatePayment(context.Background(), 1, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreatePayment_GatewayFailureMarksFailed(t *testing.T) {
	service, m := NewMock(t)
	gatewayErr := errors.New("payment gateway error: Invalid profile")

	m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1, Login: "a@b.c"}, nil)
	m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *domain.Payment) error {
		assert.Equal(t, domain.PaymentPending, p.Status)
		assert.Equal(t, "25", p.Amount.String())
		return nil
	})
	m.gateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req paytabs.SessionRequest) (*paytabs.Session, error) {
		assert.Equal(t, "a@b.c", req.CustomerEmail)
		assert.Equal(t, "Wallet top-up", req.Description)
		return nil, gatewayErr
	})
	m.payments.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), domain.PaymentFailed, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ domain.PaymentStatus, reason *string) (bool, error) {
			assert.Equal(t, gatewayErr.Error(), *reason)
			return true, nil
		})

	created, err := service.CreatePayment(context.Background(), 1, CreatePaymentInput{Intent: domain.IntentTopUp, Amount: decimal.NewFromInt(25)})
	assert.ErrorIs(t, err, ErrPaymentCreationFailed)
	assert.Nil(t, created)
}

func TestCreatePayment_Single(t *testing.T) {
	service, m := NewMock(t)
	product := &domain.Product{ID: "p1", Name: "UC", Denominations: []domain.Attrs{{"id": "d60", "price": 1}}}

	m.users.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.User{ID: 1, Login: "player"}, nil)
	m.creator.EXPECT().Prepare(gomock.Any(), 1, gomock.Any(), gomock.Any()).Return(&orderservice.PlaceInput{
		UserID:    1,
		Product:   product,
		Selection: orderservice.Selection{ProductID: "p1", DenominationID: "d60"},
		Amount:    decimal.NewFromInt(1),
	}, nil)
	m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *domain.Payment) error {
		require.Len(t, p.Metadata.Items, 1)
		item := p.Metadata.Items[0]
		assert.Equal(t, "d60", item.DenominationID)
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, "d60", item.Denomination["id"])
		return nil
	})
	m.gateway.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req paytabs.SessionRequest) (*paytabs.Session, error) {
		assert.Empty(t, req.CustomerEmail)
		return &paytabs.Session{TranRef: "TST1", RedirectURL: "https://pay/1"}, nil
	})
	m.payments.EXPECT().SetTransactionRef(gomock.Any(), gomock.Any(), "TST1").Return(nil)

	created, err := service.CreatePayment(context.Background(), 1, CreatePaymentInput{
		Intent:    domain.IntentSingle,
		Selection: orderservice.Selection{ProductID: "p1", DenominationID: "d60"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/1", created.RedirectURL)
	assert.Equal(t, "TST1", domain.StringValue(created.Payment.TransactionRef))
	assert.Equal(t, "1", created.Payment.Amount.String())
}

func TestFinalize_TerminalIsReadBack(t *testing.T) {
	service, m := NewMock(t)
	paid := &domain.Payment{ID: "pay-1", Status: domain.PaymentSucceeded, Intent: domain.IntentSingle}

	m.payments.EXPECT().GetByID(gomock.Any(), "pay-1").Return(paid, nil)
	m.orders.EXPECT().ListByPayment(gomock.Any(), "pay-1").Return([]domain.Order{{ID: "o1"}}, nil)

	res, err := service.Finalize(context.Background(), "pay-1", "TST", &paytabs.Verification{Verdict: paytabs.VerdictApproved})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, res.Payment.Status)
	assert.Len(t, res.Orders, 1)
}

func TestFinalize_NotFound(t *testing.T) {
	service, m := NewMock(t)
	m.payments.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, nil)

	_, err := service.Finalize(context.Background(), "nope", "", nil)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestFinalize_LostRaceChangesNothing(t *testing.T) {
	service, m := NewMock(t)
	pending := &domain.Payment{ID: "pay-1", Status: domain.PaymentPending, Intent: domain.IntentTopUp}
	done := &domain.Payment{ID: "pay-1", Status: domain.PaymentSucceeded, Intent: domain.IntentTopUp}

	gomock.InOrder(
		m.payments.EXPECT().GetByID(gomock.Any(), "pay-1").Return(pending, nil),
		m.payments.EXPECT().GetForUpdate(gomock.Any(), "pay-1").Return(done, nil),
		m.payments.EXPECT().GetByID(gomock.Any(), "pay-1").Return(done, nil),
	)

	res, err := service.Finalize(context.Background(), "pay-1", "TST", &paytabs.Verification{Verdict: paytabs.VerdictApproved})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, res.Payment.Status)
}

func TestStatus_Forbidden(t *testing.T) {
	service, m := NewMock(t)
	m.payments.EXPECT().GetByID(gomock.Any(), "pay-1").Return(&domain.Payment{ID: "pay-1", UserID: 2}, nil)

	_, err := service.Status(context.Background(), 1, "pay-1")
	assert.ErrorIs(t, err, ErrForbidden)
}
