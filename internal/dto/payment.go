package dto

import (
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type CreatePaymentRequestDTO struct {
	Intent           string          `json:"intent" validate:"required,oneof=topup single cart" example:"topup"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"string" example:"25"`
	ProductID        string          `json:"productId" validate:"required_if=Intent single" example:"pubg-uc"`
	RegionID         string          `json:"regionId" example:"global"`
	DenominationID   string          `json:"denominationId" example:"uc-60"`
	QuantityLabel    string          `json:"quantityLabel" example:"60 UC"`
	Quantity         int             `json:"quantity" validate:"min=0,max=100" example:"1"`
	CustomInputValue string          `json:"customInputValue"`
	Price            decimal.Decimal `json:"price" swaggertype:"string" example:"0.99"`
	CartItemIDs      []string        `json:"cartItemIds"`
}

type CreatePaymentResponseDTO struct {
	PaymentID   string `json:"paymentId"`
	RedirectURL string `json:"redirectUrl" example:"https://secure.paytabs.com/payment/page/XXXX"`
	TranRef     string `json:"tranRef" example:"TST2430001234567"`
}

type PaymentStatusDTO struct {
	PaymentID     string          `json:"paymentId"`
	Status        string          `json:"status" example:"succeeded"`
	Intent        string          `json:"intent" example:"single"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"0.99"`
	Currency      string          `json:"currency" example:"USD"`
	FailureReason *string         `json:"failureReason,omitempty"`
	Orders        []OrderDTO      `json:"orders"`
}

// CallbackDTO is the part of the PayTabs server-to-server callback the
// service cares about. Only identifiers are used; the outcome is re-queried.
type CallbackDTO struct {
	TranRef       string `json:"tran_ref"`
	CartID        string `json:"cart_id"`
	PaymentResult struct {
		ResponseStatus  string `json:"response_status"`
		ResponseMessage string `json:"response_message"`
	} `json:"payment_result"`
}

func NewPaymentStatus(p *domain.Payment, orders []domain.Order) PaymentStatusDTO {
	return PaymentStatusDTO{
		PaymentID:     p.ID,
		Status:        string(p.Status),
		Intent:        string(p.Intent),
		Amount:        p.Amount,
		Currency:      p.Currency,
		FailureReason: p.FailureReason,
		Orders:        NewOrders(orders),
	}
}
