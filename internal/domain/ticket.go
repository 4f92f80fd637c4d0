package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
	TicketStatusDeclined   TicketStatus = "declined"
)

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusCompleted, TicketStatusDeclined:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for tracked work items. Its ID is a formatted
// sequence identifier (TKT-YYYYMMDD-SSSSS). CurrentHandlerID follows
// handoffs and is distinct from AssignedTo, which only changes through
// direct reassignment.
type Ticket struct {
	ID                string
	Title             string
	Description       string
	Category          string
	Status            TicketStatus
	Priority          TicketPriority
	DepartmentID      string
	CreatedBy         string
	OriginalCreatorID string
	AssignedTo        *string
	CurrentHandlerID  string
	ForwardedFromID   *string
	ForwardedToID     *string
	ForwardReason     string
	ForwardChainID    *string
	IsForwarded       bool
	DueDate           *time.Time
	Resolution        string
	Tags              []string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HandlerOrAssignee returns the id of the actor presently responsible.
func (t *Ticket) HandlerOrAssignee() string {
	if t.CurrentHandlerID != "" {
		return t.CurrentHandlerID
	}
	if t.AssignedTo != nil {
		return *t.AssignedTo
	}
	return t.CreatedBy
}
