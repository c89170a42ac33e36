package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/cache"
	"github.com/GlebRadaev/ratnzer/internal/handlers/auth"
	"github.com/GlebRadaev/ratnzer/internal/handlers/cart"
	"github.com/GlebRadaev/ratnzer/internal/handlers/notifications"
	"github.com/GlebRadaev/ratnzer/internal/handlers/orders"
	"github.com/GlebRadaev/ratnzer/internal/handlers/payments"
	"github.com/GlebRadaev/ratnzer/internal/handlers/wallet"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/notify"
	"github.com/GlebRadaev/ratnzer/internal/repo"
	authservice "github.com/GlebRadaev/ratnzer/internal/service/authservice"
	cartservice "github.com/GlebRadaev/ratnzer/internal/service/cartservice"
	notificationservice "github.com/GlebRadaev/ratnzer/internal/service/notificationservice"
	orderservice "github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	paymentservice "github.com/GlebRadaev/ratnzer/internal/service/paymentservice"
	walletservice "github.com/GlebRadaev/ratnzer/internal/service/walletservice"
	pkgauth "github.com/GlebRadaev/ratnzer/pkg/auth"
)

type Config struct {
	Currency        string
	MaxTopUp        decimal.Decimal
	GatewayTimeout  time.Duration
	TokenTTL        time.Duration
	ProductCacheTTL time.Duration
	PushTimeout     time.Duration
}

// Deps are the outside world: gateway, provider, push and cache backends.
// Pusher and Cache may be nil.
type Deps struct {
	Gateway    paymentservice.Gateway
	Dispatcher orderservice.Dispatcher
	Pusher     notify.Pusher
	Cache      cache.Store
	JWT        pkgauth.JWTServiceInterface
	Metrics    *metrics.Metrics
}

type Services struct {
	AuthService         auth.Service
	CartService         cart.Service
	OrderService        orders.Service
	WalletService       wallet.Service
	PaymentService      payments.Service
	NotificationService notifications.Service

	Fulfillment *orderservice.Service
	Notifier    *notify.Service
}

func New(repo *repo.Repositories, cfg Config, d Deps) *Services {
	products := cache.NewProductCache(repo.ProductRepo, d.Cache, cfg.ProductCacheTTL)
	notifier := notify.New(repo.NotificationRepo, repo.UserRepo, d.Pusher, cfg.PushTimeout)

	orderService := orderservice.New(orderservice.Deps{
		Users:      repo.UserRepo,
		Balances:   repo.BalanceRepo,
		Orders:     repo.OrderRepo,
		Inventory:  repo.InventoryRepo,
		Ledger:     repo.TransactionRepo,
		Products:   products,
		TX:         repo.TXManager,
		Dispatcher: d.Dispatcher,
		Notifier:   notifier,
		Metrics:    d.Metrics,
	})

	paymentService := paymentservice.New(paymentservice.Config{
		Currency:       cfg.Currency,
		MaxTopUp:       cfg.MaxTopUp,
		GatewayTimeout: cfg.GatewayTimeout,
	}, paymentservice.Deps{
		Payments: repo.PaymentRepo,
		Orders:   repo.OrderRepo,
		Users:    repo.UserRepo,
		Balances: repo.BalanceRepo,
		Ledger:   repo.TransactionRepo,
		Cart:     repo.CartRepo,
		Creator:  orderService,
		Gateway:  d.Gateway,
		Notifier: notifier,
		TX:       repo.TXManager,
		Metrics:  d.Metrics,
	})

	return &Services{
		AuthService:         authservice.New(repo.UserRepo, &pkgauth.HashService{}, d.JWT, cfg.TokenTTL),
		CartService:         cartservice.New(repo.CartRepo, products),
		OrderService:        orderService,
		WalletService:       walletservice.New(repo.BalanceRepo, repo.TransactionRepo),
		PaymentService:      paymentService,
		NotificationService: notificationservice.New(repo.NotificationRepo),
		Fulfillment:         orderService,
		Notifier:            notifier,
	}
}
