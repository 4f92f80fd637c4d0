package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trackdesk/internal/api/dto"
	"github.com/spec-kit/trackdesk/internal/auth"
	"github.com/spec-kit/trackdesk/internal/service"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// DepartmentsHandler manages department endpoints.
type DepartmentsHandler struct {
	service *service.DepartmentService
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentService *service.DepartmentService) *DepartmentsHandler {
	return &DepartmentsHandler{service: departmentService}
}

// CreateDepartment POST /departments.
func (h *DepartmentsHandler) CreateDepartment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dept, err := h.service.Create(c.Context(), principal, service.DepartmentCreateInput{
		Name:        req.Name,
		Description: req.Description,
		HeadUserID:  req.HeadUserID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.DepartmentFromDomain(dept)})
}

// UpdateDepartment PATCH /departments/:id.
func (h *DepartmentsHandler) UpdateDepartment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	dept, err := h.service.Update(c.Context(), principal, c.Params("id"), service.DepartmentUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		HeadUserID:  req.HeadUserID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DepartmentFromDomain(dept)})
}

// GetDepartment GET /departments/:id.
func (h *DepartmentsHandler) GetDepartment(c *fiber.Ctx) error {
	dept, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DepartmentFromDomain(dept)})
}

// ListDepartments GET /departments.
func (h *DepartmentsHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.service.ListActive(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		items = append(items, dto.DepartmentFromDomain(&depts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListMembers GET /departments/:id/members.
func (h *DepartmentsHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.service.Members(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.UserFromDomain(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
