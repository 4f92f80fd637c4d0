package dto

import (
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	DepartmentID string     `json:"department_id" validate:"required"`
	CreatedBy    string     `json:"created_by"`
	AssignedTo   *string    `json:"assigned_to"`
	DueDate      *time.Time `json:"due_date"`
	Tags         []string   `json:"tags"`
}

// UpdateTicketRequest payload. Omitted fields are left untouched; the
// remark is mandatory and lands on the ticket's audit trail.
type UpdateTicketRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed declined"`
	Priority      *string    `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Category      *string    `json:"category"`
	AssignedTo    *string    `json:"assigned_to"`
	ClearAssignee bool       `json:"clear_assignee"`
	DueDate       *time.Time `json:"due_date"`
	Resolution    *string    `json:"resolution"`
	Tags          []string   `json:"tags"`
	Remark        string     `json:"remark" validate:"required"`
}

// ForwardTicketRequest payload.
type ForwardTicketRequest struct {
	ToUserID string `json:"to_user_id" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// RespondForwardRequest payload.
type RespondForwardRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject return"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateAttachmentRequest payload.
type CreateAttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	Category          string                `json:"category"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	DepartmentID      string                `json:"department_id"`
	CreatedBy         string                `json:"created_by"`
	OriginalCreatorID string                `json:"original_creator_id"`
	AssignedTo        *string               `json:"assigned_to"`
	CurrentHandlerID  string                `json:"current_handler_id"`
	ForwardedFromID   *string               `json:"forwarded_from_id"`
	ForwardedToID     *string               `json:"forwarded_to_id"`
	ForwardReason     string                `json:"forward_reason,omitempty"`
	ForwardChainID    *string               `json:"forward_chain_id"`
	IsForwarded       bool                  `json:"is_forwarded"`
	DueDate           *time.Time            `json:"due_date"`
	Resolution        string                `json:"resolution,omitempty"`
	Tags              []string              `json:"tags"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID            string                `json:"id"`
	TicketID      string                `json:"ticket_id"`
	AuthorID      string                `json:"author_id"`
	Type          domain.CommentType    `json:"type"`
	Content       string                `json:"content"`
	ForwardStatus *domain.ForwardStatus `json:"forward_status,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketFromDomain maps a ticket to its response shape.
func TicketFromDomain(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		Title:             t.Title,
		Description:       t.Description,
		Category:          t.Category,
		Status:            t.Status,
		Priority:          t.Priority,
		DepartmentID:      t.DepartmentID,
		CreatedBy:         t.CreatedBy,
		OriginalCreatorID: t.OriginalCreatorID,
		AssignedTo:        t.AssignedTo,
		CurrentHandlerID:  t.CurrentHandlerID,
		ForwardedFromID:   t.ForwardedFromID,
		ForwardedToID:     t.ForwardedToID,
		ForwardReason:     t.ForwardReason,
		ForwardChainID:    t.ForwardChainID,
		IsForwarded:       t.IsForwarded,
		DueDate:           t.DueDate,
		Resolution:        t.Resolution,
		Tags:              t.Tags,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// CommentFromDomain maps a comment to its response shape.
func CommentFromDomain(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:            c.ID,
		TicketID:      c.TicketID,
		AuthorID:      c.AuthorID,
		Type:          c.Type,
		Content:       c.Content,
		ForwardStatus: c.ForwardStatus,
		CreatedAt:     c.CreatedAt,
	}
}

// AttachmentFromDomain maps attachment metadata to its response shape.
func AttachmentFromDomain(a *domain.FileAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		CreatedAt: a.CreatedAt,
	}
}
