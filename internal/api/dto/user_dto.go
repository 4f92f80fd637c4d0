package dto

import (
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Role         string  `json:"role" validate:"omitempty,oneof=employee department_head admin"`
	DepartmentID *string `json:"department_id"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// RequestPasswordResetRequest payload.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmPasswordResetRequest payload.
type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	DepartmentID *string     `json:"department_id"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// LoginResponse carries the issued token alongside the account.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserFromDomain maps a user to its response shape.
func UserFromDomain(u *domain.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		DepartmentID: u.DepartmentID,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
	}
}
