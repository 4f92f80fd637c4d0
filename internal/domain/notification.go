package domain

import "time"

// NotificationType tags the event a notification describes.
type NotificationType string

const (
	NotificationNewTicket       NotificationType = "new_ticket"
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTicketUpdated   NotificationType = "ticket_updated"
	NotificationStatusChanged   NotificationType = "status_changed"
	NotificationTicketForwarded NotificationType = "ticket_forwarded"
	NotificationForwardResponse NotificationType = "forward_response"
)

// Notification is a per-user message produced by ticket transitions.
// Delivery is best-effort; a failed delivery never fails the transition
// that produced it.
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	Message     string
	TicketID    *string
	Read        bool
	CreatedAt   time.Time
}
