package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserStatus string

const (
	UserActive UserStatus = "active"
	UserBanned UserStatus = "banned"
)

type User struct {
	ID           int             `db:"id"`
	Login        string          `db:"login"`
	PasswordHash string          `db:"password_hash"`
	Name         string          `db:"name"`
	Balance      decimal.Decimal `db:"balance"`
	Role         Role            `db:"role"`
	Status       UserStatus      `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"   // ждёт исполнения
	OrderCompleted OrderStatus = "completed" // выдан
	OrderCancelled OrderStatus = "cancelled" // отменён, деньги возвращены
)

type FulfillmentType string

const (
	FulfillmentManual FulfillmentType = "manual"
	FulfillmentAPI    FulfillmentType = "api"
	FulfillmentStock  FulfillmentType = "stock"
)

type Order struct {
	ID               string          `db:"id"`
	UserID           int             `db:"user_id"`
	ProductID        string          `db:"product_id"`
	ProductName      string          `db:"product_name"`
	RegionID         *string         `db:"region_id"`
	RegionName       *string         `db:"region_name"`
	DenominationID   *string         `db:"denomination_id"`
	QuantityLabel    *string         `db:"quantity_label"`
	CustomInputValue *string         `db:"custom_input_value"`
	Amount           decimal.Decimal `db:"amount"`
	Status           OrderStatus     `db:"status"`
	FulfillmentType  FulfillmentType `db:"fulfillment_type"`
	DeliveredCode    *string         `db:"delivered_code"`
	RejectionReason  *string         `db:"rejection_reason"`
	ProviderName     *string         `db:"provider_name"`
	ProviderOrderID  *string         `db:"provider_order_id"`
	PaymentID        *string         `db:"payment_id"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

const TransactionCompleted = "completed"

type Transaction struct {
	ID        string          `db:"id"`
	UserID    int             `db:"user_id"`
	Title     string          `db:"title"`
	Amount    decimal.Decimal `db:"amount"`
	Type      TransactionType `db:"type"`
	Status    string          `db:"status"`
	PaymentID *string         `db:"payment_id"`
	OrderID   *string         `db:"order_id"`
	CreatedAt time.Time       `db:"created_at"`
}

// Signed returns the amount with the sign of its effect on the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed
}

type PaymentIntent string

const (
	IntentTopUp  PaymentIntent = "topup"
	IntentSingle PaymentIntent = "single"
	IntentCart   PaymentIntent = "cart"
)

func (i PaymentIntent) IsValid() bool {
	switch i {
	case IntentTopUp, IntentSingle, IntentCart:
		return true
	}
	return false
}

type Payment struct {
	ID             string          `db:"id"`
	UserID         int             `db:"user_id"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	Provider       string          `db:"provider"`
	Status         PaymentStatus   `db:"status"`
	Intent         PaymentIntent   `db:"intent"`
	TransactionRef *string         `db:"transaction_ref"`
	Metadata       PaymentMetadata `db:"metadata"`
	FailureReason  *string         `db:"failure_reason"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

type PaymentMetadata struct {
	Items []LineItem `json:"items,omitempty"`
}

// LineItem is a priced unit of a card purchase written by the server when the
// payment is created.
type LineItem struct {
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName"`
	RegionID         string          `json:"regionId,omitempty"`
	RegionName       string          `json:"regionName,omitempty"`
	DenominationID   string          `json:"denominationId,omitempty"`
	QuantityLabel    string          `json:"quantityLabel,omitempty"`
	Denomination     Attrs           `json:"denomination,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int             `json:"quantity"`
	CustomInputValue string          `json:"customInputValue,omitempty"`
	CartItemID       string          `json:"cartItemId,omitempty"`
}

func (m PaymentMetadata) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range m.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (m PaymentMetadata) CartItemIDs() []string {
	var ids []string
	for _, item := range m.Items {
		if item.CartItemID != "" {
			ids = append(ids, item.CartItemID)
		}
	}
	return ids
}

type InventoryCode struct {
	ID             string     `db:"id"`
	ProductID      string     `db:"product_id"`
	RegionID       *string    `db:"region_id"`
	DenominationID *string    `db:"denomination_id"`
	Code           string     `db:"code"`
	IsUsed         bool       `db:"is_used"`
	UsedByOrderID  *string    `db:"used_by_order_id"`
	UsedAt         *time.Time `db:"used_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

type CartItem struct {
	ID               string          `db:"id"`
	UserID           int             `db:"user_id"`
	ProductID        string          `db:"product_id"`
	Name             string          `db:"name"`
	Price            decimal.Decimal `db:"price"`
	Quantity         int             `db:"quantity"`
	RegionID         *string         `db:"region_id"`
	DenominationID   *string         `db:"denomination_id"`
	Denomination     Attrs           `db:"denomination"`
	QuantityLabel    *string         `db:"quantity_label"`
	CustomInputValue *string         `db:"custom_input_value"`
	CreatedAt        time.Time       `db:"created_at"`
}

type Notification struct {
	ID        string    `db:"id"`
	UserID    int       `db:"user_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Category  string    `db:"category"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

type DeviceToken struct {
	Token     string    `db:"token"`
	UserID    int       `db:"user_id"`
	Platform  string    `db:"platform"`
	UpdatedAt time.Time `db:"updated_at"`
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

type Page struct {
	Limit int
	Skip  int
}

// NewPage clamps limit to 1..MaxPageLimit and skip to >= 0.
func NewPage(limit, skip int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if skip < 0 {
		skip = 0
	}
	return Page{Limit: limit, Skip: skip}
}

type PageResult[T any] struct {
	Items   []T
	HasMore bool
	Total   int
}

func NewPageResult[T any](items []T, total int, page Page) PageResult[T] {
	return PageResult[T]{
		Items:   items,
		Total:   total,
		HasMore: page.Skip+len(items) < total,
	}
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Balance struct {
	UserID  int             `db:"user_id"`
	Current decimal.Decimal `db:"balance"`
	Spent   decimal.Decimal `db:"spent"`
}
