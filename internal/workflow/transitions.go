// Package workflow implements ticket lifecycle transitions as pure
// functions. Each transition takes actor and ticket snapshots and returns
// the next ticket snapshot, the audit comment to append, and the
// notification intents to dispatch. All persistence and delivery happens
// in the calling service, which keeps every transition testable in
// isolation.
package workflow

import (
	"fmt"
	"time"

	"github.com/spec-kit/trackdesk/internal/domain"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// updateCommentHeader prefixes every remark persisted by a direct update.
const updateCommentHeader = "[update] "

// ForwardAction enumerates responses to a handoff.
type ForwardAction string

const (
	ActionApprove ForwardAction = "approve"
	ActionReject  ForwardAction = "reject"
	ActionReturn  ForwardAction = "return"
)

// NotificationIntent names one notification to deliver. The workflow
// computes who and what; transports live elsewhere.
type NotificationIntent struct {
	RecipientID string
	Type        domain.NotificationType
	Message     string
	TicketID    string
}

// Result bundles a transition's output.
type Result struct {
	Ticket  domain.Ticket
	Comment *domain.Comment
	Intents []NotificationIntent
}

// CreateInput carries the resolved fields for a new ticket. CreatedBy is
// already authorized by the caller; ActorID is the acting user, which
// differs from CreatedBy when an admin creates on someone's behalf.
type CreateInput struct {
	ID           string
	Title        string
	Description  string
	Category     string
	Priority     domain.TicketPriority
	DepartmentID string
	CreatedBy    string
	ActorID      string
	AssignedTo   *string
	DueDate      *time.Time
	Tags         []string
}

// Create builds a pending ticket. departmentHeadID, when set, receives a
// new-ticket notification unless they are acting themselves.
func Create(in CreateInput, departmentHeadID *string, now time.Time) Result {
	ticket := domain.Ticket{
		ID:                in.ID,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Status:            domain.TicketStatusPending,
		Priority:          in.Priority,
		DepartmentID:      in.DepartmentID,
		CreatedBy:         in.CreatedBy,
		OriginalCreatorID: in.CreatedBy,
		AssignedTo:        in.AssignedTo,
		CurrentHandlerID:  in.CreatedBy,
		DueDate:           in.DueDate,
		Tags:              in.Tags,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if in.AssignedTo != nil {
		ticket.CurrentHandlerID = *in.AssignedTo
	}

	actorID := in.ActorID
	if actorID == "" {
		actorID = in.CreatedBy
	}

	var intents []NotificationIntent
	if in.AssignedTo != nil && *in.AssignedTo != in.CreatedBy {
		intents = append(intents, NotificationIntent{
			RecipientID: *in.AssignedTo,
			Type:        domain.NotificationTaskAssigned,
			Message:     fmt.Sprintf("Ticket %s has been assigned to you", ticket.ID),
			TicketID:    ticket.ID,
		})
	}
	if departmentHeadID != nil && *departmentHeadID != in.CreatedBy {
		intents = append(intents, NotificationIntent{
			RecipientID: *departmentHeadID,
			Type:        domain.NotificationNewTicket,
			Message:     fmt.Sprintf("Ticket %s was created in your department", ticket.ID),
			TicketID:    ticket.ID,
		})
	}

	return Result{Ticket: ticket, Intents: dedupeIntents(actorID, intents)}
}

// UpdateChanges carries the optional field edits of a direct update. Nil
// pointers leave the field untouched; ClearAssignee unsets the assignee.
type UpdateChanges struct {
	Title         *string
	Description   *string
	Status        *domain.TicketStatus
	Priority      *domain.TicketPriority
	Category      *string
	AssignedTo    *string
	ClearAssignee bool
	DueDate       *time.Time
	Resolution    *string
	Tags          []string
}

// Empty reports whether the change set touches nothing.
func (c UpdateChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Status == nil &&
		c.Priority == nil && c.Category == nil && c.AssignedTo == nil &&
		!c.ClearAssignee && c.DueDate == nil && c.Resolution == nil && c.Tags == nil
}

// ApplyUpdate performs a direct field update. A non-empty remark is
// mandatory and becomes the update audit comment.
func ApplyUpdate(ticket domain.Ticket, actor *domain.User, changes UpdateChanges, remark string, now time.Time) (Result, error) {
	if remark == "" {
		return Result{}, apperrors.NewValidationError("update remark is required", nil)
	}
	if changes.Status != nil && !domain.ValidStatus(*changes.Status) {
		return Result{}, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", *changes.Status), nil)
	}
	if changes.Priority != nil && !domain.ValidPriority(*changes.Priority) {
		return Result{}, apperrors.NewValidationError(fmt.Sprintf("unknown priority %q", *changes.Priority), nil)
	}

	oldStatus := ticket.Status
	oldAssignee := ticket.AssignedTo

	if changes.Title != nil {
		ticket.Title = *changes.Title
	}
	if changes.Description != nil {
		ticket.Description = *changes.Description
	}
	if changes.Category != nil {
		ticket.Category = *changes.Category
	}
	if changes.Status != nil {
		ticket.Status = *changes.Status
	}
	if changes.Priority != nil {
		ticket.Priority = *changes.Priority
	}
	if changes.ClearAssignee {
		ticket.AssignedTo = nil
	} else if changes.AssignedTo != nil {
		assignee := *changes.AssignedTo
		ticket.AssignedTo = &assignee
	}
	if changes.DueDate != nil {
		due := *changes.DueDate
		ticket.DueDate = &due
	}
	if changes.Resolution != nil {
		ticket.Resolution = *changes.Resolution
	}
	if changes.Tags != nil {
		ticket.Tags = changes.Tags
	}
	ticket.UpdatedAt = now

	comment := &domain.Comment{
		TicketID:  ticket.ID,
		AuthorID:  actor.ID,
		Type:      domain.CommentTypeUpdate,
		Content:   updateCommentHeader + remark,
		CreatedAt: now,
	}

	var intents []NotificationIntent
	assigneeChanged := changes.ClearAssignee || (changes.AssignedTo != nil && (oldAssignee == nil || *oldAssignee != *changes.AssignedTo))
	if assigneeChanged && ticket.AssignedTo != nil {
		intents = append(intents, NotificationIntent{
			RecipientID: *ticket.AssignedTo,
			Type:        domain.NotificationTaskAssigned,
			Message:     fmt.Sprintf("Ticket %s has been assigned to you", ticket.ID),
			TicketID:    ticket.ID,
		})
	}
	if changes.Status != nil && *changes.Status != oldStatus {
		statusMsg := fmt.Sprintf("Ticket %s status changed from %s to %s", ticket.ID, oldStatus, ticket.Status)
		intents = append(intents, NotificationIntent{
			RecipientID: ticket.CreatedBy,
			Type:        domain.NotificationStatusChanged,
			Message:     statusMsg,
			TicketID:    ticket.ID,
		})
		if oldAssignee != nil {
			intents = append(intents, NotificationIntent{
				RecipientID: *oldAssignee,
				Type:        domain.NotificationStatusChanged,
				Message:     statusMsg,
				TicketID:    ticket.ID,
			})
		}
	}
	for _, recipient := range updateAudience(&ticket) {
		intents = append(intents, NotificationIntent{
			RecipientID: recipient,
			Type:        domain.NotificationTicketUpdated,
			Message:     fmt.Sprintf("Ticket %s was updated", ticket.ID),
			TicketID:    ticket.ID,
		})
	}

	return Result{Ticket: ticket, Comment: comment, Intents: dedupeIntents(actor.ID, intents)}, nil
}

// Forward hands the ticket off to recipient. chainID is used only when
// the ticket has no forward chain yet; every later handoff reuses the
// chain allocated at the first one. Status resets to pending because the
// new handler re-triages the ticket.
func Forward(ticket domain.Ticket, actor *domain.User, recipient *domain.User, reason string, chainID string, now time.Time) Result {
	previousAssignee := ticket.AssignedTo

	actorID := actor.ID
	recipientID := recipient.ID
	ticket.ForwardedFromID = &actorID
	ticket.ForwardedToID = &recipientID
	ticket.ForwardReason = reason
	ticket.IsForwarded = true
	ticket.CurrentHandlerID = recipientID
	ticket.Status = domain.TicketStatusPending
	if ticket.ForwardChainID == nil {
		ticket.ForwardChainID = &chainID
	}
	ticket.UpdatedAt = now

	pending := domain.ForwardStatusPending
	comment := &domain.Comment{
		TicketID:      ticket.ID,
		AuthorID:      actorID,
		Type:          domain.CommentTypeForward,
		Content:       fmt.Sprintf("Forwarded to %s: %s", recipient.Name, reason),
		ForwardStatus: &pending,
		CreatedAt:     now,
	}

	intents := []NotificationIntent{{
		RecipientID: recipientID,
		Type:        domain.NotificationTicketForwarded,
		Message:     fmt.Sprintf("Ticket %s was forwarded to you: %s", ticket.ID, reason),
		TicketID:    ticket.ID,
	}}
	if actorID != recipientID {
		intents = append(intents, NotificationIntent{
			RecipientID: actorID,
			Type:        domain.NotificationTicketForwarded,
			Message:     fmt.Sprintf("You forwarded ticket %s to %s", ticket.ID, recipient.Name),
			TicketID:    ticket.ID,
		})
	}
	if ticket.CreatedBy != actorID && ticket.CreatedBy != recipientID {
		intents = append(intents, NotificationIntent{
			RecipientID: ticket.CreatedBy,
			Type:        domain.NotificationTicketForwarded,
			Message:     fmt.Sprintf("Ticket %s was forwarded to %s", ticket.ID, recipient.Name),
			TicketID:    ticket.ID,
		})
	}
	if previousAssignee != nil && *previousAssignee != actorID && *previousAssignee != recipientID {
		intents = append(intents, NotificationIntent{
			RecipientID: *previousAssignee,
			Type:        domain.NotificationTicketForwarded,
			Message:     fmt.Sprintf("Ticket %s was forwarded to %s", ticket.ID, recipient.Name),
			TicketID:    ticket.ID,
		})
	}

	return Result{Ticket: ticket, Comment: comment, Intents: dedupeIntents(actorID, intents)}
}

// Respond applies the recipient's answer to a pending handoff. A return
// reverses the handoff direction so the sender becomes the recipient of
// the returned ticket; the chain id never changes.
func Respond(ticket domain.Ticket, actor *domain.User, action ForwardAction, now time.Time) (Result, error) {
	oldFrom := ticket.ForwardedFromID
	oldTo := ticket.ForwardedToID

	var forwardStatus domain.ForwardStatus
	switch action {
	case ActionApprove:
		ticket.Status = domain.TicketStatusInProgress
		forwardStatus = domain.ForwardStatusApproved
	case ActionReject:
		ticket.Status = domain.TicketStatusDeclined
		forwardStatus = domain.ForwardStatusRejected
	case ActionReturn:
		ticket.Status = domain.TicketStatusPending
		forwardStatus = domain.ForwardStatusReturned
		actorID := actor.ID
		if oldFrom != nil {
			ticket.CurrentHandlerID = *oldFrom
			sender := *oldFrom
			ticket.ForwardedToID = &sender
		}
		ticket.ForwardedFromID = &actorID
	default:
		return Result{}, apperrors.NewValidationError(fmt.Sprintf("unknown forward action %q", action), nil)
	}
	ticket.UpdatedAt = now

	comment := &domain.Comment{
		TicketID:      ticket.ID,
		AuthorID:      actor.ID,
		Type:          domain.CommentTypeResponse,
		Content:       fmt.Sprintf("Handoff %s", forwardStatus),
		ForwardStatus: &forwardStatus,
		CreatedAt:     now,
	}

	var intents []NotificationIntent
	message := fmt.Sprintf("Handoff on ticket %s was %s", ticket.ID, forwardStatus)
	for _, recipient := range []*string{oldFrom, oldTo} {
		if recipient != nil {
			intents = append(intents, NotificationIntent{
				RecipientID: *recipient,
				Type:        domain.NotificationForwardResponse,
				Message:     message,
				TicketID:    ticket.ID,
			})
		}
	}
	intents = append(intents, NotificationIntent{
		RecipientID: ticket.CreatedBy,
		Type:        domain.NotificationForwardResponse,
		Message:     message,
		TicketID:    ticket.ID,
	})

	return Result{Ticket: ticket, Comment: comment, Intents: dedupeIntents(actor.ID, intents)}, nil
}

// updateAudience is the generic update notification set: assignee,
// creator, current handler, and forward sender.
func updateAudience(ticket *domain.Ticket) []string {
	audience := []string{ticket.CreatedBy, ticket.CurrentHandlerID}
	if ticket.AssignedTo != nil {
		audience = append(audience, *ticket.AssignedTo)
	}
	if ticket.ForwardedFromID != nil {
		audience = append(audience, *ticket.ForwardedFromID)
	}
	return audience
}

// dedupeIntents drops the actor's own notifications and collapses
// duplicate (recipient, type) pairs, preserving first-seen order.
func dedupeIntents(actorID string, intents []NotificationIntent) []NotificationIntent {
	type key struct {
		recipient string
		kind      domain.NotificationType
	}
	seen := make(map[key]struct{}, len(intents))
	result := make([]NotificationIntent, 0, len(intents))
	for _, intent := range intents {
		if intent.RecipientID == "" || intent.RecipientID == actorID {
			continue
		}
		k := key{recipient: intent.RecipientID, kind: intent.Type}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, intent)
	}
	return result
}
