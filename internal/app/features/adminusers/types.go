package adminusers

import (
	"time"

	"github.com/dalemusser/testimonyhub/internal/domain/models"
)

type createRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
	IsAdmin   bool   `json:"isAdmin"`
}

type resetRequest struct {
	UID         string `json:"uid" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// userRow is one user as listed for administrators.
type userRow struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"isActive"`
	UserType  string    `json:"userType"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func rowFor(u models.User, isAdmin bool) userRow {
	return userRow{
		ID:        u.ID.Hex(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		UserType:  u.UserType,
		IsAdmin:   isAdmin,
		CreatedAt: u.CreatedAt,
	}
}
