package events

import (
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/workflow"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketUpdated    EventType = "ticket_updated"
	EventTicketForwarded  EventType = "ticket_forwarded"
	EventForwardResponded EventType = "forward_responded"
	EventTicketDeleted    EventType = "ticket_deleted"
)

// Event represents a domain event emitted by services. Intents carry the
// notification set the transition computed; subscribers deliver them
// after the ticket mutation has committed.
type Event struct {
	ID        string                        `json:"id"`
	Type      EventType                     `json:"type"`
	TicketID  string                        `json:"ticket_id"`
	ActorID   string                        `json:"actor_id"`
	Timestamp time.Time                     `json:"timestamp"`
	Intents   []workflow.NotificationIntent `json:"intents,omitempty"`
	Payload   interface{}                   `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID string                `json:"department_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
	AssignedTo   *string               `json:"assigned_to,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Status   domain.TicketStatus   `json:"status"`
	Priority domain.TicketPriority `json:"priority"`
	Remark   string                `json:"remark"`
}

// TicketForwardedPayload payload.
type TicketForwardedPayload struct {
	ForwardedFromID string `json:"forwarded_from_id"`
	ForwardedToID   string `json:"forwarded_to_id"`
	Reason          string `json:"reason"`
	ForwardChainID  string `json:"forward_chain_id"`
}

// ForwardRespondedPayload payload.
type ForwardRespondedPayload struct {
	Action workflow.ForwardAction `json:"action"`
	Status domain.TicketStatus    `json:"status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	DepartmentID string `json:"department_id"`
}
