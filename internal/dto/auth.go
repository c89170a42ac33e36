package dto

import (
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/ratnzer/internal/domain"
)

type RegisterRequestDTO struct {
	Login    string `json:"login" validate:"required,min=3,max=50" example:"player1"`
	Password string `json:"password" validate:"required,min=8" example:"password123"`
	Name     string `json:"name" validate:"max=100" example:"Player One"`
}

type LoginRequestDTO struct {
	Login    string `json:"login" validate:"required,min=3,max=50" example:"player1"`
	Password string `json:"password" validate:"required,min=8" example:"password123"`
}

type UserDTO struct {
	ID      int             `json:"id" example:"1"`
	Login   string          `json:"login" example:"player1"`
	Name    string          `json:"name" example:"Player One"`
	Role    string          `json:"role" example:"user"`
	Balance decimal.Decimal `json:"balance" swaggertype:"string" example:"12.5"`
}

type AuthResponseDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

func NewUser(u *domain.User) UserDTO {
	return UserDTO{
		ID:      u.ID,
		Login:   u.Login,
		Name:    u.Name,
		Role:    string(u.Role),
		Balance: u.Balance,
	}
}
