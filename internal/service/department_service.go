package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/repository"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// DepartmentService manages organizational units. Mutations are
// admin-only; reads are open to any authenticated user.
type DepartmentService struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
}

// NewDepartmentService builds the service.
func NewDepartmentService(departments repository.DepartmentRepository, users repository.UserRepository) *DepartmentService {
	return &DepartmentService{departments: departments, users: users}
}

// DepartmentCreateInput describes a new department.
type DepartmentCreateInput struct {
	Name        string
	Description string
	HeadUserID  *string
}

// DepartmentUpdateInput describes a partial department update.
type DepartmentUpdateInput struct {
	Name        *string
	Description *string
	HeadUserID  *string
	IsActive    *bool
}

// Create registers a new active department.
func (s *DepartmentService) Create(ctx context.Context, actor *domain.User, input DepartmentCreateInput) (*domain.Department, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may manage departments")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if input.HeadUserID != nil {
		if err := s.checkHead(ctx, *input.HeadUserID); err != nil {
			return nil, err
		}
	}

	dept := &domain.Department{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		HeadUserID:  input.HeadUserID,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// Update applies a partial update to a department.
func (s *DepartmentService) Update(ctx context.Context, actor *domain.User, id string, input DepartmentUpdateInput) (*domain.Department, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may manage departments")
	}
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		dept.Name = name
	}
	if input.Description != nil {
		dept.Description = strings.TrimSpace(*input.Description)
	}
	if input.HeadUserID != nil {
		if *input.HeadUserID == "" {
			dept.HeadUserID = nil
		} else {
			if err := s.checkHead(ctx, *input.HeadUserID); err != nil {
				return nil, err
			}
			dept.HeadUserID = input.HeadUserID
		}
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}

	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// Get fetches a department by id.
func (s *DepartmentService) Get(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListActive returns all active departments.
func (s *DepartmentService) ListActive(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

// Members lists the users belonging to a department.
func (s *DepartmentService) Members(ctx context.Context, id string) ([]domain.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	members, err := s.users.ListByDepartment(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return members, nil
}

func (s *DepartmentService) checkHead(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return apperrors.MapError(err)
	}
	if !user.Active {
		return apperrors.NewValidationError("head user inactive", map[string]any{"id": userID})
	}
	return nil
}
