package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
	"github.com/GlebRadaev/ratnzer/pkg/validate"
)

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

type Service interface {
	CreateOrder(ctx context.Context, userID int, sel orderservice.Selection, clientPrice decimal.Decimal) (*domain.Order, error)
	ListMine(ctx context.Context, userID int, page domain.Page) (domain.PageResult[domain.Order], error)
	ListAll(ctx context.Context, page domain.Page) (domain.PageResult[domain.Order], error)
	UpdateStatus(ctx context.Context, orderID string, in orderservice.UpdateStatusInput) (*domain.Order, error)
}

type OrderHandler struct {
	orderService Service
}

func New(orderService Service) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// CreateOrder godoc
//
//	@Summary		Buy a product from the wallet
//	@Description	Debit the wallet and create an order. The price is computed on the server.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.CreateOrderRequestDTO	true	"Product selection"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.OrderDTO
//	@Failure		400	{object}	utils.Response	"Invalid selection or price"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		402	{object}	utils.Response	"Insufficient balance"
//	@Failure		403	{object}	utils.Response	"User is banned"
//	@Failure		404	{object}	utils.Response	"Product not found"
//	@Failure		502	{object}	utils.Response	"Provider rejected the order, the wallet was refunded"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.CreateOrderRequestDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel := orderservice.Selection{
		ProductID:        req.ProductID,
		RegionID:         req.RegionID,
		DenominationID:   req.DenominationID,
		QuantityLabel:    req.QuantityLabel,
		Quantity:         req.Quantity,
		CustomInputValue: req.CustomInputValue,
	}
	order, err := h.orderService.CreateOrder(r.Context(), userID, sel, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrInvalidPrice),
			errors.Is(err, orderservice.ErrCustomInputRequired):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrInsufficientBalance):
			utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, orderservice.ErrProductNotFound),
			errors.Is(err, orderservice.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orderservice.ErrUserBanned):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, orderservice.ErrProviderFailed):
			utils.RespondWithError(w, http.StatusBadGateway, "payment could not be completed")
		default:
			zap.L().Error("create order failed", zap.Int("user_id", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewOrder(*order))
}

// GetMyOrders godoc
//
//	@Summary		Get orders list for user
//	@Description	Retrieve the authorized user's orders, newest first
//	@Tags			Orders
//	@Produce		json
//	@Param			limit	query	int	false	"Page size, at most 50"
//	@Param			skip	query	int	false	"Rows to skip"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderPageDTO
//	@Failure		400	{object}	utils.Response	"Invalid paging parameters"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/my [get]
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	limit, skip, err := utils.PageParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid paging parameters")
		return
	}
	page, err := h.orderService.ListMine(r.Context(), userID, domain.NewPage(limit, skip))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderPage(page))
}

// GetAllOrders godoc
//
//	@Summary		Get all orders
//	@Description	Admin listing of every order, newest first
//	@Tags			Orders
//	@Produce		json
//	@Param			limit	query	int	false	"Page size, at most 50"
//	@Param			skip	query	int	false	"Rows to skip"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderPageDTO
//	@Failure		400	{object}	utils.Response	"Invalid paging parameters"
//	@Failure		403	{object}	utils.Response	"Admin access required"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [get]
func (h *OrderHandler) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	limit, skip, err := utils.PageParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid paging parameters")
		return
	}
	page, err := h.orderService.ListAll(r.Context(), domain.NewPage(limit, skip))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderPage(page))
}

// UpdateStatus godoc
//
//	@Summary		Resolve an order
//	@Description	Admin completes an order with a delivered code or cancels it with a wallet refund
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string							true	"Order id"
//	@Param			request	body	dto.UpdateOrderStatusRequestDTO	true	"New status"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderDTO
//	@Failure		400	{object}	utils.Response	"Invalid status"
//	@Failure		403	{object}	utils.Response	"Admin access required"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Order already has this status"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req dto.UpdateOrderStatusRequestDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, orderservice.UpdateStatusInput{
		Status:          domain.OrderStatus(req.Status),
		DeliveredCode:   req.DeliveredCode,
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrInvalidStatus):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orderservice.ErrOrderAlreadyFinal):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			zap.L().Error("update order status failed", zap.String("order_id", orderID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrder(*order))
}
