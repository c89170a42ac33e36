package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/ratnzer/docs"
	authhandlers "github.com/GlebRadaev/ratnzer/internal/handlers/auth"
	carthandlers "github.com/GlebRadaev/ratnzer/internal/handlers/cart"
	notificationhandlers "github.com/GlebRadaev/ratnzer/internal/handlers/notifications"
	ordershandlers "github.com/GlebRadaev/ratnzer/internal/handlers/orders"
	paymenthandlers "github.com/GlebRadaev/ratnzer/internal/handlers/payments"
	wallethandlers "github.com/GlebRadaev/ratnzer/internal/handlers/wallet"
	"github.com/GlebRadaev/ratnzer/internal/metrics"
	"github.com/GlebRadaev/ratnzer/internal/service"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type CartHandler interface {
	GetCart(w http.ResponseWriter, r *http.Request)
	AddItem(w http.ResponseWriter, r *http.Request)
	RemoveItem(w http.ResponseWriter, r *http.Request)
	ClearCart(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	CreateOrder(w http.ResponseWriter, r *http.Request)
	GetMyOrders(w http.ResponseWriter, r *http.Request)
	GetAllOrders(w http.ResponseWriter, r *http.Request)
	UpdateStatus(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	CreatePayment(w http.ResponseWriter, r *http.Request)
	GetStatus(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
	Return(w http.ResponseWriter, r *http.Request)
}

type NotificationHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	MarkRead(w http.ResponseWriter, r *http.Request)
	SaveToken(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler         AuthHandler
	CartHandler         CartHandler
	OrderHandler        OrderHandler
	WalletHandler       WalletHandler
	PaymentHandler      PaymentHandler
	NotificationHandler NotificationHandler

	jwt     auth.JWTServiceInterface
	metrics *metrics.Metrics
}

type Options struct {
	JWT          auth.JWTServiceInterface
	Metrics      *metrics.Metrics
	AppReturnURL string
}

func New(s *service.Services, opts Options) *Handlers {
	return &Handlers{
		AuthHandler:         authhandlers.New(s.AuthService),
		CartHandler:         carthandlers.New(s.CartService),
		OrderHandler:        ordershandlers.New(s.OrderService),
		WalletHandler:       wallethandlers.New(s.WalletService),
		PaymentHandler:      paymenthandlers.New(s.PaymentService, opts.AppReturnURL),
		NotificationHandler: notificationhandlers.New(s.NotificationService),
		jwt:                 opts.JWT,
		metrics:             opts.Metrics,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		h.metrics.Middleware,
	)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ok"})
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	authenticated := auth.AuthMiddleware(h.jwt)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.AuthHandler.Register)
			r.Post("/login", h.AuthHandler.Login)
		})

		r.Route("/payments/paytabs", func(r chi.Router) {
			r.Post("/callback", h.PaymentHandler.Callback)
			r.Get("/return", h.PaymentHandler.Return)
			r.Post("/return", h.PaymentHandler.Return)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/create", h.PaymentHandler.CreatePayment)
				r.Get("/status/{paymentID}", h.PaymentHandler.GetStatus)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.CartHandler.GetCart)
				r.Post("/", h.CartHandler.AddItem)
				r.Delete("/", h.CartHandler.ClearCart)
				r.Delete("/{id}", h.CartHandler.RemoveItem)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.OrderHandler.CreateOrder)
				r.Get("/my", h.OrderHandler.GetMyOrders)
				r.With(auth.RequireAdmin).Get("/", h.OrderHandler.GetAllOrders)
				r.With(auth.RequireAdmin).Put("/{id}/status", h.OrderHandler.UpdateStatus)
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", h.WalletHandler.GetBalance)
				r.Get("/transactions", h.WalletHandler.GetTransactions)
			})
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.NotificationHandler.List)
				r.Put("/{id}/read", h.NotificationHandler.MarkRead)
				r.Post("/tokens", h.NotificationHandler.SaveToken)
			})
		})
	})

	return r
}
