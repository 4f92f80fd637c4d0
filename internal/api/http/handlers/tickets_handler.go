package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trackdesk/internal/api/dto"
	"github.com/spec-kit/trackdesk/internal/auth"
	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/service"
	"github.com/spec-kit/trackdesk/internal/workflow"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     domain.TicketPriority(req.Priority),
		DepartmentID: req.DepartmentID,
		CreatedBy:    req.CreatedBy,
		AssignedTo:   req.AssignedTo,
		DueDate:      req.DueDate,
		Tags:         req.Tags,
	}
	ticket, err := h.service.Create(c.Context(), principal, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	input := parseTicketQuery(c)
	tickets, err := h.service.List(c.Context(), principal, input)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, comments, err := h.service.Get(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	thread := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		thread = append(thread, dto.CommentFromDomain(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":   dto.TicketFromDomain(ticket),
		"comments": thread,
	}})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	changes := workflow.UpdateChanges{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.ClearAssignee,
		DueDate:       req.DueDate,
		Resolution:    req.Resolution,
		Tags:          req.Tags,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		changes.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		changes.Priority = &priority
	}

	ticket, err := h.service.Update(c.Context(), principal, c.Params("id"), changes, req.Remark)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ForwardTicket POST /tickets/:id/forward.
func (h *TicketsHandler) ForwardTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ForwardTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.service.Forward(c.Context(), principal, c.Params("id"), req.ToUserID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// RespondToForward POST /tickets/:id/respond.
func (h *TicketsHandler) RespondToForward(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RespondForwardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.service.RespondToForward(c.Context(), principal, c.Params("id"), workflow.ForwardAction(req.Action))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.Delete(c.Context(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.Context(), principal, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CommentFromDomain(comment)})
}

// EditComment PATCH /tickets/:id/comments/:commentId.
func (h *TicketsHandler) EditComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.service.EditComment(c.Context(), principal, c.Params("commentId"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CommentFromDomain(comment)})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	attachment, err := h.service.AddAttachment(c.Context(), principal, c.Params("id"), service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AttachmentFromDomain(attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	attachments, err := h.service.ListAttachments(c.Context(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.AttachmentFromDomain(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListInput {
	input := service.TicketListInput{Limit: 50}

	if v := strings.TrimSpace(c.Query("department_id")); v != "" {
		input.DepartmentID = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		for _, raw := range strings.Split(v, ",") {
			status := domain.TicketStatus(strings.TrimSpace(raw))
			if domain.ValidStatus(status) {
				input.Statuses = append(input.Statuses, status)
			}
		}
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		for _, raw := range strings.Split(v, ",") {
			priority := domain.TicketPriority(strings.TrimSpace(raw))
			if domain.ValidPriority(priority) {
				input.Priorities = append(input.Priorities, priority)
			}
		}
	}
	if v := strings.TrimSpace(c.Query("assigned_to")); v != "" {
		input.AssignedTo = &v
	}
	if v := strings.TrimSpace(c.Query("handler_id")); v != "" {
		input.HandlerID = &v
	}
	if v := strings.TrimSpace(c.Query("search")); v != "" {
		input.SearchTerm = &v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		input.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		input.Offset = v
	}
	return input
}
