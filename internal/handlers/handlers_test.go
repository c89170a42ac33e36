package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/ratnzer/internal/handlers/auth"
	"github.com/GlebRadaev/ratnzer/internal/handlers/cart"
	"github.com/GlebRadaev/ratnzer/internal/handlers/notifications"
	"github.com/GlebRadaev/ratnzer/internal/handlers/orders"
	"github.com/GlebRadaev/ratnzer/internal/handlers/payments"
	"github.com/GlebRadaev/ratnzer/internal/handlers/wallet"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/service"
	pkgauth "github.com/GlebRadaev/ratnzer/pkg/auth"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	services := &service.Services{
		AuthService:         auth.NewMockService(ctrl),
		CartService:         cart.NewMockService(ctrl),
		OrderService:        orders.NewMockService(ctrl),
		WalletService:       wallet.NewMockService(ctrl),
		PaymentService:      payments.NewMockService(ctrl),
		NotificationService: notifications.NewMockService(ctrl),
	}

	h := New(services, Options{JWT: pkgauth.NewMockJWTServiceInterface(ctrl)})
	assert.NotNil(t, h, "Handlers should not be nil")
	assert.NotNil(t, h.PaymentHandler)
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockAuthHandler := NewMockAuthHandler(ctrl)
	mockCartHandler := NewMockCartHandler(ctrl)
	mockOrderHandler := NewMockOrderHandler(ctrl)
	mockWalletHandler := NewMockWalletHandler(ctrl)
	mockPaymentHandler := NewMockPaymentHandler(ctrl)
	mockNotificationHandler := NewMockNotificationHandler(ctrl)
	jwt := pkgauth.NewMockJWTServiceInterface(ctrl)

	mockAuthHandler.EXPECT().Register(gomock.Any(), gomock.Any()).AnyTimes()
	mockAuthHandler.EXPECT().Login(gomock.Any(), gomock.Any()).AnyTimes()
	mockCartHandler.EXPECT().GetCart(gomock.Any(), gomock.Any()).AnyTimes()
	mockCartHandler.EXPECT().AddItem(gomock.Any(), gomock.Any()).AnyTimes()
	mockCartHandler.EXPECT().ClearCart(gomock.Any(), gomock.Any()).AnyTimes()
	mockCartHandler.EXPECT().RemoveItem(gomock.Any(), gomock.Any()).AnyTimes()
	mockOrderHandler.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).AnyTimes()
	mockOrderHandler.EXPECT().GetMyOrders(gomock.Any(), gomock.Any()).AnyTimes()
	mockOrderHandler.EXPECT().GetAllOrders(gomock.Any(), gomock.Any()).AnyTimes()
	mockOrderHandler.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().GetBalance(gomock.Any(), gomock.Any()).AnyTimes()
	mockWalletHandler.EXPECT().GetTransactions(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().GetStatus(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().Callback(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().Return(gomock.Any(), gomock.Any()).AnyTimes()
	mockNotificationHandler.EXPECT().List(gomock.Any(), gomock.Any()).AnyTimes()
	mockNotificationHandler.EXPECT().MarkRead(gomock.Any(), gomock.Any()).AnyTimes()
	mockNotificationHandler.EXPECT().SaveToken(gomock.Any(), gomock.Any()).AnyTimes()

	jwt.EXPECT().ValidateToken("user-token").Return(&pkgauth.Claims{UserID: 1, Role: "user"}, nil).AnyTimes()
	jwt.EXPECT().ValidateToken("admin-token").Return(&pkgauth.Claims{UserID: 2, Role: "admin"}, nil).AnyTimes()
	jwt.EXPECT().ValidateToken("bad-token").Return(nil, errors.New("expired")).AnyTimes()

	h := &Handlers{
		AuthHandler:         mockAuthHandler,
		CartHandler:         mockCartHandler,
		OrderHandler:        mockOrderHandler,
		WalletHandler:       mockWalletHandler,
		PaymentHandler:      mockPaymentHandler,
		NotificationHandler: mockNotificationHandler,
		jwt:                 jwt,
		metrics:             metrics.New(prometheus.NewRegistry()),
	}

	router := chi.NewRouter()
	h.InitRoutes(router)

	tests := []struct {
		method string
		url    string
		token  string
		status int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		{"POST", "/api/auth/register", "", http.StatusOK},
		{"POST", "/api/auth/login", "", http.StatusOK},
		{"POST", "/api/payments/paytabs/callback", "", http.StatusOK},
		{"GET", "/api/payments/paytabs/return", "", http.StatusOK},
		{"POST", "/api/payments/paytabs/return", "", http.StatusOK},
		{"POST", "/api/payments/paytabs/create", "", http.StatusUnauthorized},
		{"POST", "/api/payments/paytabs/create", "user-token", http.StatusOK},
		{"GET", "/api/payments/paytabs/status/p-1", "user-token", http.StatusOK},
		{"GET", "/api/cart", "", http.StatusUnauthorized},
		{"GET", "/api/cart", "bad-token", http.StatusUnauthorized},
		{"GET", "/api/cart", "user-token", http.StatusOK},
		{"POST", "/api/cart", "user-token", http.StatusOK},
		{"DELETE", "/api/cart", "user-token", http.StatusOK},
		{"DELETE", "/api/cart/ci-1", "user-token", http.StatusOK},
		{"POST", "/api/orders", "user-token", http.StatusOK},
		{"GET", "/api/orders/my", "user-token", http.StatusOK},
		{"GET", "/api/orders", "user-token", http.StatusForbidden},
		{"GET", "/api/orders", "admin-token", http.StatusOK},
		{"PUT", "/api/orders/o-1/status", "user-token", http.StatusForbidden},
		{"PUT", "/api/orders/o-1/status", "admin-token", http.StatusOK},
		{"GET", "/api/wallet/balance", "", http.StatusUnauthorized},
		{"GET", "/api/wallet/balance", "user-token", http.StatusOK},
		{"GET", "/api/wallet/transactions", "user-token", http.StatusOK},
		{"GET", "/api/notifications", "user-token", http.StatusOK},
		{"PUT", "/api/notifications/n-1/read", "user-token", http.StatusOK},
		{"POST", "/api/notifications/tokens", "user-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url+" "+tt.token, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
