package dto

import (
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	HeadUserID  *string `json:"head_user_id"`
}

// UpdateDepartmentRequest payload. Nil fields are left untouched.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	HeadUserID  *string `json:"head_user_id"`
	IsActive    *bool   `json:"is_active"`
}

// DepartmentResponse representation.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HeadUserID  *string   `json:"head_user_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DepartmentFromDomain maps a department to its response shape.
func DepartmentFromDomain(d *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		HeadUserID:  d.HeadUserID,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
