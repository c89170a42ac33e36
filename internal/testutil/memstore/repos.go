package memstore

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	balancerepo "github.com/GlebRadaev/ratnzer/internal/repo/balance-repo"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/pg"
)

type Users struct{ s *Store }

func (r *Users) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, "users.FindByLogin", func(st *state) error {
		for _, u := range st.users {
			if u.Login == login {
				u := u
				found = &u
			}
		}
		return nil
	})
	return found, err
}

func (r *Users) GetByID(ctx context.Context, id int) (*domain.User, error) {
	var found *domain.User
	err := r.s.do(ctx, "users.GetByID", func(st *state) error {
		if u, ok := st.users[id]; ok {
			found = &u
		}
		return nil
	})
	return found, err
}

func (r *Users) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := r.s.do(ctx, "users.Create", func(st *state) error {
		for _, u := range st.users {
			if u.Login == user.Login {
				return &pg.ConstraintViolation{Field: "login", Kind: pg.ViolationUnique}
			}
		}
		r.s.nextUser++
		user.ID = r.s.nextUser
		user.Balance = decimal.Zero
		if user.Role == "" {
			user.Role = domain.RoleUser
		}
		if user.Status == "" {
			user.Status = domain.UserActive
		}
		user.CreatedAt = r.s.now()
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Users) AdminIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := r.s.do(ctx, "users.AdminIDs", func(st *state) error {
		for id, u := range st.users {
			if u.Role == domain.RoleAdmin && u.Status == domain.UserActive {
				ids = append(ids, id)
			}
		}
		sort.Ints(ids)
		return nil
	})
	return ids, err
}

type Balances struct{ s *Store }

func (r *Balances) GetUserBalance(ctx context.Context, userID int) (*domain.Balance, error) {
	var b *domain.Balance
	err := r.s.do(ctx, "balance.GetUserBalance", func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return nil
		}
		spent := decimal.Zero
		for _, t := range st.transactions {
			if t.UserID == userID && t.Type == domain.TransactionDebit {
				spent = spent.Add(t.Amount)
			}
		}
		b = &domain.Balance{UserID: userID, Current: u.Balance, Spent: spent}
		return nil
	})
	return b, err
}

func (r *Balances) Debit(ctx context.Context, userID int, amount decimal.Decimal) (bool, error) {
	var ok bool
	err := r.s.do(ctx, "balance.Debit", func(st *state) error {
		u, found := st.users[userID]
		if !found || u.Balance.LessThan(amount) {
			return nil
		}
		u.Balance = u.Balance.Sub(amount)
		st.users[userID] = u
		ok = true
		return nil
	})
	return ok, err
}

func (r *Balances) Credit(ctx context.Context, userID int, amount decimal.Decimal) error {
	return r.s.do(ctx, "balance.Credit", func(st *state) error {
		u, found := st.users[userID]
		if !found {
			return balancerepo.ErrUserNotFound
		}
		u.Balance = u.Balance.Add(amount)
		st.users[userID] = u
		return nil
	})
}

type Ledger struct{ s *Store }

func (r *Ledger) Append(ctx context.Context, t *domain.Transaction) error {
	return r.s.do(ctx, "transactions.Append", func(st *state) error {
		if !t.Amount.IsPositive() {
			return &pg.ConstraintViolation{Field: "amount", Kind: pg.ViolationCheck}
		}
		if t.Status == "" {
			t.Status = domain.TransactionCompleted
		}
		t.CreatedAt = r.s.now()
		st.transactions = append(st.transactions, *t)
		return nil
	})
}

func (r *Ledger) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Transaction, int, error) {
	var (
		items []domain.Transaction
		total int
	)
	err := r.s.do(ctx, "transactions.ListByUser", func(st *state) error {
		var all []domain.Transaction
		for i := len(st.transactions) - 1; i >= 0; i-- {
			if st.transactions[i].UserID == userID {
				all = append(all, st.transactions[i])
			}
		}
		total = len(all)
		items = paginate(all, page)
		return nil
	})
	return items, total, err
}

type Orders struct{ s *Store }

func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	return r.s.do(ctx, "orders.Create", func(st *state) error {
		if _, exists := st.orders[o.ID]; exists {
			return &pg.ConstraintViolation{Field: "id", Kind: pg.ViolationUnique}
		}
		o.CreatedAt = r.s.now()
		o.UpdatedAt = o.CreatedAt
		st.orders[o.ID] = *o
		return nil
	})
}

func (r *Orders) get(ctx context.Context, op, id string) (*domain.Order, error) {
	var found *domain.Order
	err := r.s.do(ctx, op, func(st *state) error {
		if o, ok := st.orders[id]; ok {
			found = &o
		}
		return nil
	})
	return found, err
}

func (r *Orders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "orders.GetByID", id)
}

func (r *Orders) GetForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, "orders.GetForUpdate", id)
}

func (r *Orders) Update(ctx context.Context, o *domain.Order) error {
	return r.s.do(ctx, "orders.Update", func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return nil
		}
		cur.Status = o.Status
		cur.FulfillmentType = o.FulfillmentType
		if cur.DeliveredCode == nil {
			cur.DeliveredCode = o.DeliveredCode
		}
		cur.RejectionReason = o.RejectionReason
		cur.ProviderName = o.ProviderName
		cur.ProviderOrderID = o.ProviderOrderID
		cur.UpdatedAt = r.s.now()
		st.orders[o.ID] = cur
		*o = cur
		return nil
	})
}

func (r *Orders) filter(ctx context.Context, op string, keep func(o domain.Order) bool) ([]domain.Order, error) {
	var out []domain.Order
	err := r.s.do(ctx, op, func(st *state) error {
		for _, o := range st.orders {
			if keep(o) {
				out = append(out, o)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *Orders) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Order, int, error) {
	all, err := r.filter(ctx, "orders.ListByUser", func(o domain.Order) bool { return o.UserID == userID })
	return paginate(all, page), len(all), err
}

func (r *Orders) List(ctx context.Context, page domain.Page) ([]domain.Order, int, error) {
	all, err := r.filter(ctx, "orders.List", func(domain.Order) bool { return true })
	return paginate(all, page), len(all), err
}

func (r *Orders) ListByPayment(ctx context.Context, paymentID string) ([]domain.Order, error) {
	all, err := r.filter(ctx, "orders.ListByPayment", func(o domain.Order) bool {
		return o.PaymentID != nil && *o.PaymentID == paymentID
	})
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, err
}

func (r *Orders) ListPendingProvider(ctx context.Context, limit int) ([]domain.Order, error) {
	all, err := r.filter(ctx, "orders.ListPendingProvider", func(o domain.Order) bool {
		return o.Status == domain.OrderPending && o.ProviderOrderID != nil
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, err
}

type Payments struct{ s *Store }

func (r *Payments) Create(ctx context.Context, p *domain.Payment) error {
	return r.s.do(ctx, "payments.Create", func(st *state) error {
		if _, exists := st.payments[p.ID]; exists {
			return &pg.ConstraintViolation{Field: "id", Kind: pg.ViolationUnique}
		}
		p.CreatedAt = r.s.now()
		p.UpdatedAt = p.CreatedAt
		st.payments[p.ID] = *p
		return nil
	})
}

func (r *Payments) get(ctx context.Context, op string, match func(p domain.Payment) bool) (*domain.Payment, error) {
	var found *domain.Payment
	err := r.s.do(ctx, op, func(st *state) error {
		for _, p := range st.payments {
			if match(p) {
				p := p
				found = &p
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *Payments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, "payments.GetByID", func(p domain.Payment) bool { return p.ID == id })
}

func (r *Payments) GetByTransactionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.get(ctx, "payments.GetByTransactionRef", func(p domain.Payment) bool {
		return p.TransactionRef != nil && *p.TransactionRef == ref
	})
}

func (r *Payments) GetForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, "payments.GetForUpdate", func(p domain.Payment) bool { return p.ID == id })
}

func (r *Payments) SetTransactionRef(ctx context.Context, id, ref string) error {
	return r.s.do(ctx, "payments.SetTransactionRef", func(st *state) error {
		for pid, p := range st.payments {
			if pid != id && p.TransactionRef != nil && *p.TransactionRef == ref {
				return &pg.ConstraintViolation{Field: "transaction_ref", Kind: pg.ViolationUnique}
			}
		}
		p, ok := st.payments[id]
		if !ok || (p.TransactionRef != nil && *p.TransactionRef != ref) {
			return nil
		}
		p.TransactionRef = &ref
		p.UpdatedAt = r.s.now()
		st.payments[id] = p
		return nil
	})
}

func (r *Payments) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, reason *string) (bool, error) {
	var changed bool
	err := r.s.do(ctx, "payments.UpdateStatus", func(st *state) error {
		p, ok := st.payments[id]
		if !ok || p.Status != domain.PaymentPending {
			return nil
		}
		p.Status = status
		p.FailureReason = reason
		p.UpdatedAt = r.s.now()
		st.payments[id] = p
		changed = true
		return nil
	})
	return changed, err
}

type Inventory struct{ s *Store }

func (r *Inventory) Claim(ctx context.Context, productID string, regionID, denominationID *string) (*domain.InventoryCode, error) {
	var claimed *domain.InventoryCode
	err := r.s.do(ctx, "inventory.Claim", func(st *state) error {
		best := -1
		for i, c := range st.inventory {
			if c.IsUsed || c.ProductID != productID || !eqOrNull(c.RegionID, regionID) || !eqOrNull(c.DenominationID, denominationID) {
				continue
			}
			if best < 0 || c.CreatedAt.Before(st.inventory[best].CreatedAt) {
				best = i
			}
		}
		if best < 0 {
			return nil
		}
		now := r.s.now()
		st.inventory[best].IsUsed = true
		st.inventory[best].UsedAt = &now
		c := st.inventory[best]
		claimed = &c
		return nil
	})
	return claimed, err
}

func (r *Inventory) LinkOrder(ctx context.Context, codeID, orderID string) error {
	return r.s.do(ctx, "inventory.LinkOrder", func(st *state) error {
		for _, c := range st.inventory {
			if c.UsedByOrderID != nil && *c.UsedByOrderID == orderID && c.ID != codeID {
				return &pg.ConstraintViolation{Field: "used_by_order_id", Kind: pg.ViolationUnique}
			}
		}
		for i := range st.inventory {
			if st.inventory[i].ID == codeID {
				st.inventory[i].UsedByOrderID = &orderID
			}
		}
		return nil
	})
}

type Products struct{ s *Store }

func (r *Products) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var found *domain.Product
	err := r.s.do(ctx, "products.GetByID", func(*state) error {
		if p, ok := r.s.products[id]; ok {
			found = &p
		}
		return nil
	})
	return found, err
}

type Cart struct{ s *Store }

func (r *Cart) Add(ctx context.Context, item *domain.CartItem) error {
	return r.s.do(ctx, "cart.Add", func(st *state) error {
		if item.Quantity < 1 || item.Quantity > 100 {
			return &pg.ConstraintViolation{Field: "quantity", Kind: pg.ViolationCheck}
		}
		item.CreatedAt = r.s.now()
		st.cart = append(st.cart, *item)
		return nil
	})
}

func (r *Cart) ListByUser(ctx context.Context, userID int) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := r.s.do(ctx, "cart.ListByUser", func(st *state) error {
		for _, c := range st.cart {
			if c.UserID == userID {
				items = append(items, c)
			}
		}
		return nil
	})
	return items, err
}

func (r *Cart) remove(st *state, keep func(c domain.CartItem) bool) int {
	kept := st.cart[:0:0]
	removed := 0
	for _, c := range st.cart {
		if keep(c) {
			kept = append(kept, c)
		} else {
			removed++
		}
	}
	st.cart = kept
	return removed
}

func (r *Cart) Delete(ctx context.Context, userID int, id string) (bool, error) {
	var removed int
	err := r.s.do(ctx, "cart.Delete", func(st *state) error {
		removed = r.remove(st, func(c domain.CartItem) bool { return !(c.UserID == userID && c.ID == id) })
		return nil
	})
	return removed > 0, err
}

func (r *Cart) DeleteByIDs(ctx context.Context, userID int, ids []string) error {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.s.do(ctx, "cart.DeleteByIDs", func(st *state) error {
		r.remove(st, func(c domain.CartItem) bool { return !(c.UserID == userID && set[c.ID]) })
		return nil
	})
}

func (r *Cart) Clear(ctx context.Context, userID int) error {
	return r.s.do(ctx, "cart.Clear", func(st *state) error {
		r.remove(st, func(c domain.CartItem) bool { return c.UserID != userID })
		return nil
	})
}

type Notifications struct{ s *Store }

func (r *Notifications) Create(ctx context.Context, n *domain.Notification) error {
	return r.s.do(ctx, "notifications.Create", func(st *state) error {
		n.CreatedAt = r.s.now()
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r *Notifications) ListByUser(ctx context.Context, userID int, page domain.Page) ([]domain.Notification, int, error) {
	var (
		items []domain.Notification
		total int
	)
	err := r.s.do(ctx, "notifications.ListByUser", func(st *state) error {
		var all []domain.Notification
		for i := len(st.notifications) - 1; i >= 0; i-- {
			if st.notifications[i].UserID == userID {
				all = append(all, st.notifications[i])
			}
		}
		total = len(all)
		items = paginate(all, page)
		return nil
	})
	return items, total, err
}

func (r *Notifications) MarkRead(ctx context.Context, userID int, id string) (bool, error) {
	var found bool
	err := r.s.do(ctx, "notifications.MarkRead", func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id && st.notifications[i].UserID == userID {
				st.notifications[i].IsRead = true
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r *Notifications) SaveToken(ctx context.Context, t *domain.DeviceToken) error {
	return r.s.do(ctx, "notifications.SaveToken", func(st *state) error {
		t.UpdatedAt = r.s.now()
		st.tokens[t.Token] = *t
		return nil
	})
}

func (r *Notifications) TokensByUsers(ctx context.Context, userIDs []int) ([]string, error) {
	set := make(map[int]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	var tokens []string
	err := r.s.do(ctx, "notifications.TokensByUsers", func(st *state) error {
		for token, t := range st.tokens {
			if set[t.UserID] {
				tokens = append(tokens, token)
			}
		}
		sort.Strings(tokens)
		return nil
	})
	return tokens, err
}

func (r *Notifications) DeleteToken(ctx context.Context, token string) error {
	return r.s.do(ctx, "notifications.DeleteToken", func(st *state) error {
		delete(st.tokens, token)
		return nil
	})
}

// ErrInjected is a convenience failure for Fail.
var ErrInjected = errors.New("injected failure")
