package repo

import (
	"github.com/GlebRadaev/ratnzer/internal/pg"
	balancerepo "github.com/GlebRadaev/ratnzer/internal/repo/balance-repo"
	cartrepo "github.com/GlebRadaev/ratnzer/internal/repo/cart-repo"
	inventoryrepo "github.com/GlebRadaev/ratnzer/internal/repo/inventory-repo"
	notificationrepo "github.com/GlebRadaev/ratnzer/internal/repo/notification-repo"
	orderrepo "github.com/GlebRadaev/ratnzer/internal/repo/order-repo"
	paymentrepo "github.com/GlebRadaev/ratnzer/internal/repo/payment-repo"
	productrepo "github.com/GlebRadaev/ratnzer/internal/repo/product-repo"
	transactionrepo "github.com/GlebRadaev/ratnzer/internal/repo/transaction-repo"
	userrepo "github.com/GlebRadaev/ratnzer/internal/repo/user-repo"
)

type Repositories struct {
	UserRepo         *userrepo.Repository
	BalanceRepo      *balancerepo.Repository
	TransactionRepo  *transactionrepo.Repository
	OrderRepo        *orderrepo.Repository
	PaymentRepo      *paymentrepo.Repository
	InventoryRepo    *inventoryrepo.Repository
	ProductRepo      *productrepo.Repository
	CartRepo         *cartrepo.Repository
	NotificationRepo *notificationrepo.Repository
	TXManager        pg.TXManager
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		UserRepo:         userrepo.New(conn),
		BalanceRepo:      balancerepo.New(conn),
		TransactionRepo:  transactionrepo.New(conn),
		OrderRepo:        orderrepo.New(conn),
		PaymentRepo:      paymentrepo.New(conn),
		InventoryRepo:    inventoryrepo.New(conn),
		ProductRepo:      productrepo.New(conn),
		CartRepo:         cartrepo.New(conn),
		NotificationRepo: notificationrepo.New(conn),
		TXManager:        txManager,
	}
}
