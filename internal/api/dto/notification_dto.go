package dto

import (
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// NotificationResponse representation.
type NotificationResponse struct {
	ID          string                  `json:"id"`
	RecipientID string                  `json:"recipient_id"`
	Type        domain.NotificationType `json:"type"`
	Message     string                  `json:"message"`
	TicketID    *string                 `json:"ticket_id"`
	Read        bool                    `json:"read"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NotificationFromDomain maps a notification to its response shape.
func NotificationFromDomain(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Message:     n.Message,
		TicketID:    n.TicketID,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt,
	}
}
