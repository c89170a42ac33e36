package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type BalanceResponseDTO struct {
	Current decimal.Decimal `json:"current" swaggertype:"string" example:"500.5"`
	Spent   decimal.Decimal `json:"spent" swaggertype:"string" example:"42"`
}

type TransactionDTO struct {
	ID        string          `json:"id"`
	Title     string          `json:"title" example:"Wallet top-up"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"25"`
	Type      string          `json:"type" example:"credit"`
	Status    string          `json:"status" example:"completed"`
	PaymentID *string         `json:"paymentId,omitempty"`
	OrderID   *string         `json:"orderId,omitempty"`
	CreatedAt time.Time       `json:"createdAt" example:"2024-12-09T16:09:57+03:00"`
}

type TransactionPageDTO struct {
	Items   []TransactionDTO `json:"items"`
	HasMore bool             `json:"hasMore"`
	Total   int              `json:"total"`
}

func NewBalance(b *domain.Balance) BalanceResponseDTO {
	return BalanceResponseDTO{Current: b.Current, Spent: b.Spent}
}

func NewTransactionPage(page domain.PageResult[domain.Transaction]) TransactionPageDTO {
	items := make([]TransactionDTO, 0, len(page.Items))
	for _, t := range page.Items {
		items = append(items, TransactionDTO{
			ID:        t.ID,
			Title:     t.Title,
			Amount:    t.Amount,
			Type:      string(t.Type),
			Status:    t.Status,
			PaymentID: t.PaymentID,
			OrderID:   t.OrderID,
			CreatedAt: t.CreatedAt,
		})
	}
	return TransactionPageDTO{Items: items, HasMore: page.HasMore, Total: page.Total}
}
