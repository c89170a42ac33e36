package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type AddCartItemRequestDTO struct {
	ProductID        string `json:"productId" validate:"required" example:"pubg-uc"`
	RegionID         string `json:"regionId" example:"global"`
	DenominationID   string `json:"denominationId" example:"uc-60"`
	QuantityLabel    string `json:"quantityLabel" example:"60 UC"`
	Quantity         int    `json:"quantity" example:"2"`
	CustomInputValue string `json:"customInputValue" example:"5123456789"`
}

type CartItemDTO struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price" swaggertype:"string" example:"0.99"`
	Quantity         int             `json:"quantity" example:"2"`
	RegionID         *string         `json:"regionId,omitempty"`
	DenominationID   *string         `json:"denominationId,omitempty"`
	Denomination     domain.Attrs    `json:"denomination,omitempty" swaggertype:"object"`
	QuantityLabel    *string         `json:"quantityLabel,omitempty"`
	CustomInputValue *string         `json:"customInputValue,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type CartResponseDTO struct {
	Items []CartItemDTO   `json:"items"`
	Total decimal.Decimal `json:"total" swaggertype:"string" example:"1.98"`
}

func NewCartItem(item domain.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:               item.ID,
		ProductID:        item.ProductID,
		Name:             item.Name,
		Price:            item.Price,
		Quantity:         item.Quantity,
		RegionID:         item.RegionID,
		DenominationID:   item.DenominationID,
		Denomination:     item.Denomination,
		QuantityLabel:    item.QuantityLabel,
		CustomInputValue: item.CustomInputValue,
		CreatedAt:        item.CreatedAt,
	}
}

func NewCart(items []domain.CartItem) CartResponseDTO {
	resp := CartResponseDTO{Items: make([]CartItemDTO, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		resp.Items = append(resp.Items, NewCartItem(item))
		resp.Total = resp.Total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return resp
}
