package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/cartservice"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
	"github.com/GlebRadaev/ratnzer/pkg/validate"
)

//go:generate mockgen -source=cart.go -destination=mock_cart.go -package=cart

type Service interface {
	Add(ctx context.Context, userID int, in cartservice.AddInput) (*domain.CartItem, error)
	List(ctx context.Context, userID int) ([]domain.CartItem, error)
	Remove(ctx context.Context, userID int, id string) error
	Clear(ctx context.Context, userID int) error
}

type CartHandler struct {
	cartService Service
}

func New(cartService Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart godoc
//
//	@Summary		Get cart
//	@Tags			Cart
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	dto.CartResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/cart [get]
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	items, err := h.cartService.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewCart(items))
}

// AddItem godoc
//
//	@Summary		Add an item to the cart
//	@Description	The price is computed on the server from the product catalog
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.AddCartItemRequestDTO	true	"Product selection"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.CartItemDTO
//	@Failure		400	{object}	utils.Response	"Invalid selection"
//	@Failure		404	{object}	utils.Response	"Product not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/cart [post]
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.AddCartItemRequestDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.cartService.Add(r.Context(), userID, cartservice.AddInput{
		ProductID:        req.ProductID,
		RegionID:         req.RegionID,
		DenominationID:   req.DenominationID,
		QuantityLabel:    req.QuantityLabel,
		Quantity:         req.Quantity,
		CustomInputValue: req.CustomInputValue,
	})
	if err != nil {
		switch {
		case errors.Is(err, orderservice.ErrProductNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orderservice.ErrInvalidPrice),
			errors.Is(err, orderservice.ErrCustomInputRequired):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			zap.L().Error("add cart item failed", zap.Int("user_id", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewCartItem(*item))
}

// RemoveItem godoc
//
//	@Summary		Remove an item from the cart
//	@Tags			Cart
//	@Param			id	path	string	true	"Cart item id"
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Cart item not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/cart/{id} [delete]
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	err := h.cartService.Remove(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, cartservice.ErrItemNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Item removed"})
}

// ClearCart godoc
//
//	@Summary		Clear the cart
//	@Tags			Cart
//	@Security		BearerAuth
//	@Success		200	{object}	utils.Response
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/cart [delete]
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	if err := h.cartService.Clear(r.Context(), userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Cart cleared"})
}
