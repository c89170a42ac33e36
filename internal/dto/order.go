package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type CreateOrderRequestDTO struct {
	ProductID        string          `json:"productId" validate:"required" example:"pubg-uc"`
	RegionID         string          `json:"regionId" example:"global"`
	DenominationID   string          `json:"denominationId" example:"uc-60"`
	QuantityLabel    string          `json:"quantityLabel" example:"60 UC"`
	Quantity         int             `json:"quantity" validate:"min=0,max=100" example:"1"`
	CustomInputValue string          `json:"customInputValue" example:"5123456789"`
	Price            decimal.Decimal `json:"price" swaggertype:"string" example:"0.99"`
}

type UpdateOrderStatusRequestDTO struct {
	Status          string `json:"status" validate:"required,oneof=completed cancelled" example:"completed"`
	DeliveredCode   string `json:"deliveredCode" example:"XXXX-YYYY-ZZZZ"`
	RejectionReason string `json:"rejectionReason" example:"Out of stock"`
}

type OrderDTO struct {
	ID               string          `json:"id" example:"0b8f7c1e-4f71-4a55-9f0c-2f7f6f0b8a11"`
	ProductID        string          `json:"productId" example:"pubg-uc"`
	ProductName      string          `json:"productName" example:"PUBG UC"`
	RegionID         *string         `json:"regionId,omitempty"`
	RegionName       *string         `json:"regionName,omitempty"`
	DenominationID   *string         `json:"denominationId,omitempty"`
	QuantityLabel    *string         `json:"quantityLabel,omitempty"`
	CustomInputValue *string         `json:"customInputValue,omitempty"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"string" example:"0.99"`
	Status           string          `json:"status" example:"pending"`
	FulfillmentType  string          `json:"fulfillmentType" example:"api"`
	DeliveredCode    *string         `json:"deliveredCode,omitempty"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	ProviderOrderID  *string         `json:"providerOrderId,omitempty"`
	PaymentID        *string         `json:"paymentId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt" example:"2024-12-09T16:09:57+03:00"`
	UpdatedAt        time.Time       `json:"updatedAt" example:"2024-12-09T16:09:57+03:00"`
}

type OrderPageDTO struct {
	Items   []OrderDTO `json:"items"`
	HasMore bool       `json:"hasMore"`
	Total   int        `json:"total"`
}

func NewOrder(o domain.Order) OrderDTO {
	return OrderDTO{
		ID:               o.ID,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		RegionID:         o.RegionID,
		RegionName:       o.RegionName,
		DenominationID:   o.DenominationID,
		QuantityLabel:    o.QuantityLabel,
		CustomInputValue: o.CustomInputValue,
		Amount:           o.Amount,
		Status:           string(o.Status),
		FulfillmentType:  string(o.FulfillmentType),
		DeliveredCode:    o.DeliveredCode,
		RejectionReason:  o.RejectionReason,
		ProviderOrderID:  o.ProviderOrderID,
		PaymentID:        o.PaymentID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func NewOrders(orders []domain.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrder(o))
	}
	return out
}

func NewOrderPage(page domain.PageResult[domain.Order]) OrderPageDTO {
	return OrderPageDTO{
		Items:   NewOrders(page.Items),
		HasMore: page.HasMore,
		Total:   page.Total,
	}
}
