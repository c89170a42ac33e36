package dto

import (
	"time"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type NotificationDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" example:"Order completed"`
	Body      string    `json:"body"`
	Category  string    `json:"category" example:"order"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationPageDTO struct {
	Items   []NotificationDTO `json:"items"`
	HasMore bool              `json:"hasMore"`
	Total   int               `json:"total"`
}

type SaveTokenRequestDTO struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"max=20" example:"android"`
}

func NewNotificationPage(page domain.PageResult[domain.Notification]) NotificationPageDTO {
	items := make([]NotificationDTO, 0, len(page.Items))
	for _, n := range page.Items {
		items = append(items, NotificationDTO{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Category:  n.Category,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return NotificationPageDTO{Items: items, HasMore: page.HasMore, Total: page.Total}
}
