// Package memstore is an in-memory ledger store for service tests. Every
// top-level transaction holds one global lock, which makes transactions
// serializable; nested transactions are savepoints.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

type txKey struct{}

type state struct {
	users         map[int]domain.User
	orders        map[string]domain.Order
	payments      map[string]domain.Payment
	transactions  []domain.Transaction
	inventory     []domain.InventoryCode
	cart          []domain.CartItem
	notifications []domain.Notification
	tokens        map[string]domain.DeviceToken
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[int]domain.User, len(s.users)),
		orders:        make(map[string]domain.Order, len(s.orders)),
		payments:      make(map[string]domain.Payment, len(s.payments)),
		transactions:  append([]domain.Transaction(nil), s.transactions...),
		inventory:     append([]domain.InventoryCode(nil), s.inventory...),
		cart:          append([]domain.CartItem(nil), s.cart...),
		notifications: append([]domain.Notification(nil), s.notifications...),
		tokens:        make(map[string]domain.DeviceToken, len(s.tokens)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	return c
}

type Store struct {
	mu       sync.Mutex
	st       *state
	products map[string]domain.Product
	nextUser int
	clock    time.Time
	failures map[string]error
	calls    map[string]int

	Users         *Users
	Balances      *Balances
	Ledger        *Ledger
	Orders        *Orders
	Payments      *Payments
	Inventory     *Inventory
	Products      *Products
	Cart          *Cart
	Notifications *Notifications
	TX            pg.TXManager
}

func New() *Store {
	s := &Store{
		st: &state{
			users:    map[int]domain.User{},
			orders:   map[string]domain.Order{},
			payments: map[string]domain.Payment{},
			tokens:   map[string]domain.DeviceToken{},
		},
		products: map[string]domain.Product{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		failures: map[string]error{},
		calls:    map[string]int{},
	}
	s.Users = &Users{s}
	s.Balances = &Balances{s}
	s.Ledger = &Ledger{s}
	s.Orders = &Orders{s}
	s.Payments = &Payments{s}
	s.Inventory = &Inventory{s}
	s.Products = &Products{s}
	s.Cart = &Cart{s}
	s.Notifications = &Notifications{s}
	s.TX = &txManager{s}
	return s
}

// Fail makes every later call of op return err until cleared with a nil err.
// Ops are named "<repo>.<Method>", for example "inventory.LinkOrder".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how often op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// do runs fn under the store lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, op string, fn func(st *state) error) error {
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.calls[op]++
	if err := s.failures[op]; err != nil {
		return err
	}
	return fn(s.st)
}

func (s *Store) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

type txManager struct {
	s *Store
}

// Begin refuses a done context the way pgx does when starting a transaction.
func (m *txManager) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	s := m.s
	if err := ctx.Err(); err != nil {
		return err
	}
	if ctx.Value(txKey{}) == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}

	snapshot := s.st.clone()
	if err := fn(ctx); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Seed helpers. They bypass transactions and failure hooks.

func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextUser++
		u.ID = s.nextUser
	} else if u.ID > s.nextUser {
		s.nextUser = u.ID
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Status == "" {
		u.Status = domain.UserActive
	}
	u.CreatedAt = s.now()
	s.st.users[u.ID] = u
	return u
}

func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) AddCode(c domain.InventoryCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CreatedAt = s.now()
	s.st.inventory = append(s.st.inventory, c)
}

func (s *Store) AddCartItem(item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.CreatedAt = s.now()
	s.st.cart = append(s.st.cart, item)
}

// Inspection helpers.

func (s *Store) Balance(userID int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[userID].Balance
}

func (s *Store) Transactions(userID int) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.st.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// LedgerSum is the signed sum of a user's ledger rows.
func (s *Store) LedgerSum(userID int) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range s.Transactions(userID) {
		sum = sum.Add(t.Signed())
	}
	return sum
}

func (s *Store) AllOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.st.orders))
	for _, o := range s.st.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Payment(id string) (domain.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.payments[id]
	return p, ok
}

func (s *Store) Codes() []domain.InventoryCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.InventoryCode(nil), s.st.inventory...)
}

func (s *Store) CartItems(userID int) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartItem
	for _, c := range s.st.cart {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) UserNotifications(userID int) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func paginate[T any](items []T, page domain.Page) []T {
	if page.Skip >= len(items) {
		return nil
	}
	end := page.Skip + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Skip:end]
}

func eqOrNull(stored, wanted *string) bool {
	return stored == nil || (wanted != nil && *stored == *wanted)
}
