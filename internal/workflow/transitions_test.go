package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/trackdesk/internal/domain"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func employee(id string) *domain.User {
	dept := "dept-1"
	return &domain.User{ID: id, Name: "User " + id, Role: domain.RoleEmployee, DepartmentID: &dept, Active: true}
}

func baseTicket() domain.Ticket {
	return domain.Ticket{
		ID:                "TKT-20260314-00001",
		Title:             "Printer offline",
		Status:            domain.TicketStatusPending,
		Priority:          domain.TicketPriorityMedium,
		DepartmentID:      "dept-1",
		CreatedBy:         "e1",
		OriginalCreatorID: "e1",
		CurrentHandlerID:  "e1",
		Version:           1,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}
}

func TestCreateDefaults(t *testing.T) {
	result := Create(CreateInput{
		ID:           "TKT-20260314-00001",
		Title:        "Printer offline",
		DepartmentID: "dept-1",
		CreatedBy:    "e1",
	}, nil, testNow)

	ticket := result.Ticket
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "e1", ticket.CurrentHandlerID)
	assert.Equal(t, "e1", ticket.OriginalCreatorID)
	assert.False(t, ticket.IsForwarded)
	assert.Nil(t, ticket.ForwardChainID)
	assert.Nil(t, result.Comment)
	assert.Empty(t, result.Intents)
}

func TestCreateNotifiesAssigneeAndHead(t *testing.T) {
	head := "head-1"
	result := Create(CreateInput{
		ID:           "TKT-20260314-00001",
		Title:        "Printer offline",
		DepartmentID: "dept-1",
		CreatedBy:    "e1",
		AssignedTo:   strPtr("e2"),
	}, &head, testNow)

	assert.Equal(t, "e2", result.Ticket.CurrentHandlerID)
	require.Len(t, result.Intents, 2)
	assert.Equal(t, "e2", result.Intents[0].RecipientID)
	assert.Equal(t, domain.NotificationTaskAssigned, result.Intents[0].Type)
	assert.Equal(t, "head-1", result.Intents[1].RecipientID)
	assert.Equal(t, domain.NotificationNewTicket, result.Intents[1].Type)
}

func TestCreateOnBehalfExcludesActorNotCreator(t *testing.T) {
	// An admin who heads the department creates a ticket for e1: the
	// admin is the actor and must not be notified, while intents aimed
	// at the creator remain valid.
	head := "admin-1"
	result := Create(CreateInput{
		ID:           "TKT-20260314-00001",
		Title:        "Printer offline",
		DepartmentID: "dept-1",
		CreatedBy:    "e1",
		ActorID:      "admin-1",
		AssignedTo:   strPtr("admin-1"),
	}, &head, testNow)

	for _, intent := range result.Intents {
		assert.NotEqual(t, "admin-1", intent.RecipientID, "actor must never be notified")
	}
}

func TestCreateSelfAssignedSkipsNotifications(t *testing.T) {
	head := "e1"
	result := Create(CreateInput{
		ID:           "TKT-20260314-00001",
		Title:        "Printer offline",
		DepartmentID: "dept-1",
		CreatedBy:    "e1",
		AssignedTo:   strPtr("e1"),
	}, &head, testNow)

	assert.Empty(t, result.Intents)
}

func TestApplyUpdateRequiresRemark(t *testing.T) {
	_, err := ApplyUpdate(baseTicket(), employee("e1"), UpdateChanges{Title: strPtr("New")}, "", testNow)
	assert.True(t, apperrors.IsValidation(err))
}

func TestApplyUpdateRejectsUnknownEnums(t *testing.T) {
	badStatus := domain.TicketStatus("archived")
	_, err := ApplyUpdate(baseTicket(), employee("e1"), UpdateChanges{Status: &badStatus}, "remark", testNow)
	assert.True(t, apperrors.IsValidation(err))

	badPriority := domain.TicketPriority("urgent")
	_, err = ApplyUpdate(baseTicket(), employee("e1"), UpdateChanges{Priority: &badPriority}, "remark", testNow)
	assert.True(t, apperrors.IsValidation(err))
}

func TestApplyUpdateWritesAuditComment(t *testing.T) {
	inProgress := domain.TicketStatusInProgress
	result, err := ApplyUpdate(baseTicket(), employee("e2"), UpdateChanges{Status: &inProgress}, "taking this over", testNow)
	require.NoError(t, err)

	require.NotNil(t, result.Comment)
	assert.Equal(t, domain.CommentTypeUpdate, result.Comment.Type)
	assert.Equal(t, "[update] taking this over", result.Comment.Content)
	assert.Equal(t, "e2", result.Comment.AuthorID)
	assert.Equal(t, domain.TicketStatusInProgress, result.Ticket.Status)
}

func TestApplyUpdateStatusChangeNotifiesCreator(t *testing.T) {
	completed := domain.TicketStatusCompleted
	result, err := ApplyUpdate(baseTicket(), employee("e2"), UpdateChanges{Status: &completed}, "done", testNow)
	require.NoError(t, err)

	var hasStatusChange bool
	for _, intent := range result.Intents {
		if intent.RecipientID == "e1" && intent.Type == domain.NotificationStatusChanged {
			hasStatusChange = true
		}
		assert.NotEqual(t, "e2", intent.RecipientID, "actor must never be notified")
	}
	assert.True(t, hasStatusChange)
}

func TestApplyUpdateAssigneeChangeNotifiesNewAssignee(t *testing.T) {
	result, err := ApplyUpdate(baseTicket(), employee("e1"), UpdateChanges{AssignedTo: strPtr("e3")}, "assigning", testNow)
	require.NoError(t, err)

	require.NotEmpty(t, result.Intents)
	assert.Equal(t, "e3", result.Intents[0].RecipientID)
	assert.Equal(t, domain.NotificationTaskAssigned, result.Intents[0].Type)
}

func TestApplyUpdateDedupesRecipients(t *testing.T) {
	// Creator, handler, and assignee are all e1; the ticket_updated
	// audience must collapse to nothing once the actor is excluded.
	ticket := baseTicket()
	ticket.AssignedTo = strPtr("e1")

	result, err := ApplyUpdate(ticket, employee("e1"), UpdateChanges{Title: strPtr("New title")}, "retitled", testNow)
	require.NoError(t, err)
	assert.Empty(t, result.Intents)
}

func TestForwardSetsHandoffState(t *testing.T) {
	result := Forward(baseTicket(), employee("e1"), employee("e2"), "needs review", "FWD-20260314-00001", testNow)

	ticket := result.Ticket
	assert.True(t, ticket.IsForwarded)
	assert.Equal(t, "e2", ticket.CurrentHandlerID)
	require.NotNil(t, ticket.ForwardedFromID)
	assert.Equal(t, "e1", *ticket.ForwardedFromID)
	require.NotNil(t, ticket.ForwardedToID)
	assert.Equal(t, "e2", *ticket.ForwardedToID)
	assert.Equal(t, "needs review", ticket.ForwardReason)
	require.NotNil(t, ticket.ForwardChainID)
	assert.Equal(t, "FWD-20260314-00001", *ticket.ForwardChainID)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)

	require.NotNil(t, result.Comment)
	assert.Equal(t, domain.CommentTypeForward, result.Comment.Type)
	require.NotNil(t, result.Comment.ForwardStatus)
	assert.Equal(t, domain.ForwardStatusPending, *result.Comment.ForwardStatus)
}

func TestForwardResetsStatusToPending(t *testing.T) {
	ticket := baseTicket()
	ticket.Status = domain.TicketStatusInProgress

	result := Forward(ticket, employee("e1"), employee("e2"), "escalating", "FWD-20260314-00002", testNow)
	assert.Equal(t, domain.TicketStatusPending, result.Ticket.Status)
}

func TestForwardKeepsExistingChain(t *testing.T) {
	ticket := baseTicket()
	ticket.ForwardChainID = strPtr("FWD-20260314-00001")

	result := Forward(ticket, employee("e2"), employee("e3"), "next hop", "FWD-20260314-00099", testNow)
	require.NotNil(t, result.Ticket.ForwardChainID)
	assert.Equal(t, "FWD-20260314-00001", *result.Ticket.ForwardChainID)
}

func TestForwardNotifications(t *testing.T) {
	ticket := baseTicket()
	ticket.CreatedBy = "e0"
	ticket.AssignedTo = strPtr("e9")

	result := Forward(ticket, employee("e1"), employee("e2"), "needs review", "FWD-20260314-00001", testNow)

	recipients := make(map[string]bool)
	for _, intent := range result.Intents {
		assert.Equal(t, domain.NotificationTicketForwarded, intent.Type)
		assert.NotEqual(t, "e1", intent.RecipientID, "actor must never be notified")
		recipients[intent.RecipientID] = true
	}
	assert.True(t, recipients["e2"], "recipient notified")
	assert.True(t, recipients["e0"], "creator notified")
	assert.True(t, recipients["e9"], "previous assignee notified")
}

func forwardedTicket() domain.Ticket {
	ticket := baseTicket()
	ticket.IsForwarded = true
	ticket.ForwardedFromID = strPtr("e1")
	ticket.ForwardedToID = strPtr("e2")
	ticket.ForwardReason = "needs review"
	ticket.ForwardChainID = strPtr("FWD-20260314-00001")
	ticket.CurrentHandlerID = "e2"
	ticket.Status = domain.TicketStatusPending
	return ticket
}

func TestRespondApprove(t *testing.T) {
	result, err := Respond(forwardedTicket(), employee("e2"), ActionApprove, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, result.Ticket.Status)
	assert.Equal(t, "e2", result.Ticket.CurrentHandlerID)
	require.NotNil(t, result.Comment.ForwardStatus)
	assert.Equal(t, domain.ForwardStatusApproved, *result.Comment.ForwardStatus)
}

func TestRespondReject(t *testing.T) {
	result, err := Respond(forwardedTicket(), employee("e2"), ActionReject, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusDeclined, result.Ticket.Status)
	require.NotNil(t, result.Comment.ForwardStatus)
	assert.Equal(t, domain.ForwardStatusRejected, *result.Comment.ForwardStatus)
}

func TestRespondReturnReversesHandoff(t *testing.T) {
	result, err := Respond(forwardedTicket(), employee("e2"), ActionReturn, testNow)
	require.NoError(t, err)

	ticket := result.Ticket
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, "e1", ticket.CurrentHandlerID)
	require.NotNil(t, ticket.ForwardedFromID)
	assert.Equal(t, "e2", *ticket.ForwardedFromID)
	require.NotNil(t, ticket.ForwardedToID)
	assert.Equal(t, "e1", *ticket.ForwardedToID)
	require.NotNil(t, ticket.ForwardChainID)
	assert.Equal(t, "FWD-20260314-00001", *ticket.ForwardChainID, "chain id survives the return")
}

func TestRespondUnknownAction(t *testing.T) {
	_, err := Respond(forwardedTicket(), employee("e2"), ForwardAction("escalate"), testNow)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRespondNotifiesSenderAndCreator(t *testing.T) {
	ticket := forwardedTicket()
	ticket.CreatedBy = "e0"

	result, err := Respond(ticket, employee("e2"), ActionApprove, testNow)
	require.NoError(t, err)

	recipients := make(map[string]bool)
	for _, intent := range result.Intents {
		assert.Equal(t, domain.NotificationForwardResponse, intent.Type)
		assert.NotEqual(t, "e2", intent.RecipientID)
		recipients[intent.RecipientID] = true
	}
	assert.True(t, recipients["e1"], "sender notified")
	assert.True(t, recipients["e0"], "creator notified")
}

func TestDedupeIntents(t *testing.T) {
	intents := []NotificationIntent{
		{RecipientID: "a", Type: domain.NotificationTicketUpdated},
		{RecipientID: "actor", Type: domain.NotificationTicketUpdated},
		{RecipientID: "a", Type: domain.NotificationTicketUpdated},
		{RecipientID: "a", Type: domain.NotificationStatusChanged},
		{RecipientID: "", Type: domain.NotificationTicketUpdated},
		{RecipientID: "b", Type: domain.NotificationTicketUpdated},
	}

	result := dedupeIntents("actor", intents)
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].RecipientID)
	assert.Equal(t, domain.NotificationTicketUpdated, result[0].Type)
	assert.Equal(t, "a", result[1].RecipientID)
	assert.Equal(t, domain.NotificationStatusChanged, result[1].Type)
	assert.Equal(t, "b", result[2].RecipientID)
}

func TestUpdateChangesEmpty(t *testing.T) {
	assert.True(t, UpdateChanges{}.Empty())
	assert.False(t, UpdateChanges{Title: strPtr("x")}.Empty())
	assert.False(t, UpdateChanges{ClearAssignee: true}.Empty())
	assert.False(t, UpdateChanges{Tags: []string{}}.Empty())
}
