package notifications

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GlebRadaev/ratnzer/internal/domain"
	"github.com/GlebRadaev/ratnzer/internal/dto"
	"github.com/GlebRadaev/ratnzer/internal/service/notificationservice"
	"github.com/GlebRadaev/ratnzer/pkg/auth"
	"github.com/GlebRadaev/ratnzer/pkg/utils"
	"github.com/GlebRadaev/ratnzer/pkg/validate"
)

//go:generate mockgen -source=notifications.go -destination=mock_notifications.go -package=notifications

type Service interface {
	List(ctx context.Context, userID int, page domain.Page) (domain.PageResult[domain.Notification], error)
	MarkRead(ctx context.Context, userID int, id string) error
	SaveToken(ctx context.Context, userID int, token, platform string) error
}

type NotificationHandler struct {
	notificationService Service
}

func New(notificationService Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List godoc
//
//	@Summary		Get notifications
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Page size, at most 50"
//	@Param			skip	query		int	false	"Rows to skip"
//	@Success		200		{object}	dto.NotificationPageDTO
//	@Failure		400		{object}	utils.Response	"Invalid paging parameters"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	limit, skip, err := utils.PageParams(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid paging parameters")
		return
	}
	page, err := h.notificationService.List(r.Context(), userID, domain.NewPage(limit, skip))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewNotificationPage(page))
}

// MarkRead godoc
//
//	@Summary		Mark a notification as read
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Notification id"
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Notification not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	err := h.notificationService.MarkRead(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, notificationservice.ErrNotificationNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Notification marked as read"})
}

// SaveToken godoc
//
//	@Summary		Register a device push token
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SaveTokenRequestDTO	true	"Device token"
//	@Success		200		{object}	utils.Response
//	@Failure		400		{object}	utils.Response	"Invalid token"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/notifications/tokens [post]
func (h *NotificationHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(int)

	var req dto.SaveTokenRequestDTO
	if err := validate.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.notificationService.SaveToken(r.Context(), userID, req.Token, req.Platform)
	if err != nil {
		if errors.Is(err, notificationservice.ErrInvalidToken) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Token saved"})
}
