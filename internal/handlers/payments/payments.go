package payments

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/orderservice"
	"github.com/GlebRadaev/ratnzer/internal/service/paymentservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
	"github.com/GlebRadaev/ratnzer/pkg/validate"
)

//go:generate mockgen -source=payments.go -destination=mock_payments.go -package=payments

type Service interface {
	CreatePayment(ctx context.Context, userID int, in paymentservice.CreatePaymentInput) (*paymentservice.CreatedPayment, error)
	Status(ctx context.Context, userID int, paymentID string) (*paymentservice.Result, error)
	HandleCallback(ctx context.Context, cb paymentservice.Callback) (*paymentservice.Result, error)
}

type PaymentHandler struct {
	paymentService Service
	appReturnURL   string
}

// New builds the handler. appReturnURL is where the return page sends the
// browser once the payment is checked; empty keeps the user on the page.
func New(paymentService Service, appReturnURL string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		appReturnURL:   appReturnURL,
	}
}

// CreatePayment godoc
//
//	@Summary		Start a card payment
//	@Description	Creates a pending payment priced on the server and returns the hosted payment page URL.
//	@Description	Intent topup needs amount, single needs a product selection, cart pays the cart (optionally only cartItemIds).
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.CreatePaymentRequestDTO	true	"Payment request"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.CreatePaymentResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid intent, amount or selection"
//	@Failure		403	{object}	utils.Response	"User is banned"
//	@Failure		404	{object}	utils.Response	"Product not found"
//	@Failure		502	{object}	utils.Response	"Payment gateway failure"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/paytabs/create [post]
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.CreatePaymentRequestDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.paymentService.CreatePayment(r.Context(), userID, paymentservice.CreatePaymentInput{
		Intent: domain.PaymentIntent(req.Intent),
		Amount: req.Amount,
		Selection: orderservice.Selection{
			ProductID:        req.ProductID,
			RegionID:         req.RegionID,
			DenominationID:   req.DenominationID,
			QuantityLabel:    req.QuantityLabel,
			Quantity:         req.Quantity,
			CustomInputValue: req.CustomInputValue,
		},
		ClientPrice: req.Price,
		CartItemIDs: req.CartItemIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrInvalidIntent),
			errors.Is(err, paymentservice.ErrInvalidAmount),
			errors.Is(err, paymentservice.ErrEmptyCart),
			errors.Is(err, orderservice.ErrInvalidPrice),
			errors.Is(err, orderservice.ErrCustomInputRequired):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, orderservice.ErrProductNotFound),
			errors.Is(err, orderservice.ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orderservice.ErrUserBanned):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, paymentservice.ErrPaymentCreationFailed):
			utils.RespondWithError(w, http.StatusBadGateway, "payment could not be created")
		default:
			zap.L().Error("create payment failed", zap.Int("user_id", userID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.CreatePaymentResponseDTO{
		PaymentID:   created.Payment.ID,
		RedirectURL: created.RedirectURL,
		TranRef:     created.TranRef,
	})
}

// GetStatus godoc
//
//	@Summary		Get payment status
//	@Description	Re-verifies a pending payment with the gateway and returns it with its orders
//	@Tags			Payments
//	@Produce		json
//	@Param			paymentID	path	string	true	"Payment id"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.PaymentStatusDTO
//	@Failure		403	{object}	utils.Response	"Payment belongs to another user"
//	@Failure		404	{object}	utils.Response	"Payment not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/payments/paytabs/status/{paymentID} [get]
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)
	paymentID := chi.URLParam(r, "paymentID")

	res, err := h.paymentService.Status(r.Context(), userID, paymentID)
	if err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrPaymentNotFound):
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, paymentservice.ErrForbidden):
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		default:
			zap.L().Error("payment status failed", zap.String("payment_id", paymentID), zap.Error(err))
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPaymentStatus(res.Payment, res.Orders))
}

// Callback godoc
//
//	@Summary		PayTabs server callback
//	@Description	Locates the payment and re-verifies it with the gateway. Always answers 200.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CallbackDTO	true	"PayTabs callback"
//	@Success		200		{object}	utils.Response
//	@Router			/api/payments/paytabs/callback [post]
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.CallbackDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		zap.L().Warn("unreadable payment callback", zap.Error(err))
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ok"})
		return
	}

	res, err := h.paymentService.HandleCallback(r.Context(), paymentservice.Callback{
		TranRef: req.TranRef,
		CartID:  req.CartID,
	})
	if err != nil {
		zap.L().Error("payment callback failed",
			zap.String("cart_id", req.CartID),
			zap.String("tran_ref", req.TranRef),
			zap.Error(err))
	} else {
		zap.L().Info("payment callback handled",
			zap.String("payment_id", res.Payment.ID),
			zap.String("status", string(res.Payment.Status)))
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ok"})
}

var returnPage = template.Must(template.New("return").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .Next}}<meta http-equiv="refresh" content="2;url={{.Next}}">{{end}}
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Next}}<p><a href="{{.Next}}">Back to the store</a></p>{{end}}
</body>
</html>
`))

type returnView struct {
	Title   string
	Message string
	Next    string
}

// Return godoc
//
//	@Summary		PayTabs return page
//	@Description	The browser lands here after the hosted payment page. The payment is re-verified before the page is shown.
//	@Tags			Payments
//	@Accept			x-www-form-urlencoded
//	@Produce		html
//	@Param			tranRef	formData	string	false	"Gateway transaction reference"
//	@Param			cartId	formData	string	false	"Payment id"
//	@Success		200
//	@Router			/api/payments/paytabs/return [post]
//	@Router			/api/payments/paytabs/return [get]
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		zap.L().Warn("unreadable return form", zap.Error(err))
	}
	cb := paymentservice.Callback{
		TranRef: firstOf(r.Form, "tranRef", "tran_ref"),
		CartID:  firstOf(r.Form, "cartId", "cart_id", "paymentId"),
	}

	view := returnView{
		Title:   "Payment is being processed",
		Message: "We are still waiting for the bank. Your order will appear as soon as the payment is confirmed.",
	}
	status := string(domain.PaymentPending)

	res, err := h.paymentService.HandleCallback(r.Context(), cb)
	if err != nil {
		zap.L().Error("payment return check failed", zap.String("cart_id", cb.CartID), zap.Error(err))
	} else {
		status = string(res.Payment.Status)
		switch res.Payment.Status {
		case domain.PaymentSucceeded:
			view.Title = "Payment successful"
			view.Message = "Thank you. Your payment was received."
		case domain.PaymentFailed:
			view.Title = "Payment failed"
			view.Message = "The payment was not completed. No money was taken from your wallet."
		}
	}
	view.Next = h.nextURL(cb.CartID, status)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := returnPage.Execute(w, view); err != nil {
		zap.L().Error("can't render return page", zap.Error(err))
	}
}

func (h *PaymentHandler) nextURL(paymentID, status string) string {
	if h.appReturnURL == "" {
		return ""
	}
	u, err := url.Parse(h.appReturnURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	if paymentID != "" {
		q.Set("paymentId", paymentID)
	}
	q.Set("status", status)
	u.RawQuery = q.Encode()
	return u.String()
}

func firstOf(values url.Values, keys ...string) string {
	for _, k := range keys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	return ""
}
