package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/events"
	"github.com/spec-kit/trackdesk/internal/repository"
	"github.com/spec-kit/trackdesk/internal/sequence"
	"github.com/spec-kit/trackdesk/internal/workflow"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// In-memory repository fakes. They mirror the persistence contracts,
// including pgx.ErrNoRows on missing rows and ErrVersionConflict on
// stale writes.

type fakeTicketRepo struct {
	mu            sync.Mutex
	tickets       map[string]domain.Ticket
	conflictsLeft int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.Version = 1
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		return repository.ErrVersionConflict
	}
	if current.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.DepartmentID != nil && ticket.DepartmentID != *filter.DepartmentID {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == comment.ID && r.comments[i].Type == domain.CommentTypeRegular {
			r.comments[i].Content = comment.Content
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			copied := r.comments[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *fakeCommentRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.comments[:0]
	for _, c := range r.comments {
		if c.TicketID != ticketID {
			kept = append(kept, c)
		}
	}
	r.comments = kept
	return nil
}

func (r *fakeCommentRepo) byType(kind domain.CommentType) []domain.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for _, c := range r.comments {
		if c.Type == kind {
			result = append(result, c)
		}
	}
	return result
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []domain.Notification
	deleteErr     error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, _, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, recipientID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].RecipientID == recipientID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeNotificationRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	kept := r.notifications[:0]
	for _, n := range r.notifications {
		if n.TicketID == nil || *n.TicketID != ticketID {
			kept = append(kept, n)
		}
	}
	r.notifications = kept
	return nil
}

func (r *fakeNotificationRepo) recipients() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, n := range r.notifications {
		counts[n.RecipientID]++
	}
	return counts
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	attachments []domain.FileAttachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, a *domain.FileAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, *a)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.FileAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.FileAttachment
	for _, a := range r.attachments {
		if a.TicketID == ticketID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) DeleteByTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attachments[:0]
	for _, a := range r.attachments {
		if a.TicketID != ticketID {
			kept = append(kept, a)
		}
	}
	r.attachments = kept
	return nil
}

type fakeDepartmentRepo struct {
	departments map[string]domain.Department
}

func (r *fakeDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.departments[dept.ID] = *dept
	return nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	if _, ok := r.departments[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.departments[dept.ID] = *dept
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	dept, ok := r.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := dept
	return &copied, nil
}

func (r *fakeDepartmentRepo) ListActive(_ context.Context) ([]domain.Department, error) {
	var result []domain.Department
	for _, d := range r.departments {
		if d.IsActive {
			result = append(result, d)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByDepartment(_ context.Context, departmentID string) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if user.DepartmentID != nil && *user.DepartmentID == departmentID {
			result = append(result, user)
		}
	}
	return result, nil
}

// fixture wires a TicketService over the fakes.

type fixture struct {
	service       *TicketService
	tickets       *fakeTicketRepo
	comments      *fakeCommentRepo
	notifications *fakeNotificationRepo
	attachments   *fakeAttachmentRepo
	users         *fakeUserRepo
	departments   *fakeDepartmentRepo
	intents       *capturedIntents
}

type capturedIntents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedIntents) record(_ context.Context, event events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturedIntents) byType(kind events.EventType) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var result []events.Event
	for _, e := range c.events {
		if e.Type == kind {
			result = append(result, e)
		}
	}
	return result
}

func deptPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		tickets:       newFakeTicketRepo(),
		comments:      &fakeCommentRepo{},
		notifications: &fakeNotificationRepo{},
		attachments:   &fakeAttachmentRepo{},
		users:         &fakeUserRepo{users: make(map[string]domain.User)},
		departments:   &fakeDepartmentRepo{departments: make(map[string]domain.Department)},
		intents:       &capturedIntents{},
	}

	head := "head-1"
	f.departments.departments["dept-1"] = domain.Department{ID: "dept-1", Name: "IT", HeadUserID: &head, IsActive: true}
	f.departments.departments["dept-2"] = domain.Department{ID: "dept-2", Name: "HR", IsActive: true}

	for _, u := range []domain.User{
		{ID: "head-1", Name: "Head One", Role: domain.RoleDepartmentHead, DepartmentID: deptPtr("dept-1"), Active: true},
		{ID: "e1", Name: "Employee One", Role: domain.RoleEmployee, DepartmentID: deptPtr("dept-1"), Active: true},
		{ID: "e2", Name: "Employee Two", Role: domain.RoleEmployee, DepartmentID: deptPtr("dept-1"), Active: true},
		{ID: "e3", Name: "Employee Three", Role: domain.RoleEmployee, DepartmentID: deptPtr("dept-1"), Active: true},
		{ID: "outsider", Name: "Outsider", Role: domain.RoleEmployee, DepartmentID: deptPtr("dept-2"), Active: true},
		{ID: "admin", Name: "Admin", Role: domain.RoleAdmin, Active: true},
	} {
		f.users.users[u.ID] = u
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, kind := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketForwarded,
		events.EventForwardResponded,
		events.EventTicketDeleted,
	} {
		dispatcher.Subscribe(kind, f.intents.record)
	}

	allocator := sequence.NewAllocator(sequence.NewMemoryStore()).WithClock(func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	})

	f.service = NewTicketService(TicketDependencies{
		TicketRepo:       f.tickets,
		CommentRepo:      f.comments,
		NotificationRepo: f.notifications,
		AttachmentRepo:   f.attachments,
		DepartmentRepo:   f.departments,
		UserRepo:         f.users,
		Allocator:        allocator,
		Dispatcher:       dispatcher,
	}).WithClock(func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	})
	return f
}

func (f *fixture) actor(id string) *domain.User {
	user := f.users.users[id]
	return &user
}

func (f *fixture) createTicket(t *testing.T, actorID string) *domain.Ticket {
	t.Helper()
	ticket, err := f.service.Create(context.Background(), f.actor(actorID), TicketCreateInput{
		Title:        "Printer offline",
		Description:  "Third floor printer is not responding",
		DepartmentID: "dept-1",
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicketAllocatesSequentialIDs(t *testing.T) {
	f := newFixture(t)

	first := f.createTicket(t, "e1")
	second := f.createTicket(t, "e1")

	assert.Equal(t, "TKT-20260314-00001", first.ID)
	assert.Equal(t, "TKT-20260314-00002", second.ID)
	assert.Equal(t, domain.TicketStatusPending, first.Status)
	assert.Equal(t, "e1", first.CurrentHandlerID)
}

func TestCreateTicketNotifiesDepartmentHead(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, "e1")

	created := f.intents.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	require.Len(t, created[0].Intents, 1)
	assert.Equal(t, "head-1", created[0].Intents[0].RecipientID)
	assert.Equal(t, domain.NotificationNewTicket, created[0].Intents[0].Type)
}

func TestCreateTicketRejectsForeignDepartment(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.actor("outsider"), TicketCreateInput{
		Title:        "Nope",
		DepartmentID: "dept-1",
	})
	assert.True(t, apperrors.IsForbidden(err))
}

func TestCreateTicketOnBehalfOfRequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(context.Background(), f.actor("e1"), TicketCreateInput{
		Title:        "Proxy ticket",
		DepartmentID: "dept-1",
		CreatedBy:    "e2",
	})
	assert.True(t, apperrors.IsForbidden(err))

	ticket, err := f.service.Create(context.Background(), f.actor("admin"), TicketCreateInput{
		Title:        "Proxy ticket",
		DepartmentID: "dept-1",
		CreatedBy:    "e2",
	})
	require.NoError(t, err)
	assert.Equal(t, "e2", ticket.CreatedBy)
	assert.Equal(t, "e2", ticket.OriginalCreatorID)
}

func TestCreateTicketOnBehalfExcludesActingAdmin(t *testing.T) {
	f := newFixture(t)

	// The acting admin heads the target department, so the new-ticket
	// intent would point at them; the actor exclusion must drop it.
	admin := "admin"
	f.departments.departments["dept-3"] = domain.Department{ID: "dept-3", Name: "Ops", HeadUserID: &admin, IsActive: true}

	_, err := f.service.Create(context.Background(), f.actor("admin"), TicketCreateInput{
		Title:        "Proxy ticket",
		DepartmentID: "dept-3",
		CreatedBy:    "e1",
	})
	require.NoError(t, err)

	created := f.intents.byType(events.EventTicketCreated)
	require.Len(t, created, 1)
	for _, intent := range created[0].Intents {
		assert.NotEqual(t, "admin", intent.RecipientID, "acting admin must never be notified")
	}
}

func TestUpdateRequiresRemark(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	title := "Renamed"
	_, err := f.service.Update(context.Background(), f.actor("e1"), ticket.ID, workflow.UpdateChanges{Title: &title}, "  ")
	assert.True(t, apperrors.IsValidation(err))

	// The refused update must leave the ticket untouched.
	stored, getErr := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Printer offline", stored.Title)
	assert.Empty(t, f.comments.byType(domain.CommentTypeUpdate))
}

func TestUpdateWritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	status := domain.TicketStatusInProgress
	updated, err := f.service.Update(context.Background(), f.actor("e2"), ticket.ID, workflow.UpdateChanges{Status: &status}, "picking this up")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	audits := f.comments.byType(domain.CommentTypeUpdate)
	require.Len(t, audits, 1)
	assert.Equal(t, "[update] picking this up", audits[0].Content)
	assert.Equal(t, "e2", audits[0].AuthorID)
}

func TestUpdateReturnsPersistedVersion(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	title := "Renamed"
	updated, err := f.service.Update(context.Background(), f.actor("e1"), ticket.ID, workflow.UpdateChanges{Title: &title}, "rename")
	require.NoError(t, err)

	stored, getErr := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, getErr)
	assert.Equal(t, stored.Version, updated.Version)
	assert.Equal(t, ticket.Version+1, updated.Version)
}

func TestUpdateForbiddenForOutsider(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	title := "Hijacked"
	_, err := f.service.Update(context.Background(), f.actor("outsider"), ticket.ID, workflow.UpdateChanges{Title: &title}, "mine now")
	assert.True(t, apperrors.IsForbidden(err))
}

func TestUpdateRetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	f.tickets.conflictsLeft = 2
	title := "Renamed"
	updated, err := f.service.Update(context.Background(), f.actor("e1"), ticket.ID, workflow.UpdateChanges{Title: &title}, "rename")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestUpdateGivesUpAfterBoundedRetries(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	f.tickets.conflictsLeft = 10
	title := "Renamed"
	_, err := f.service.Update(context.Background(), f.actor("e1"), ticket.ID, workflow.UpdateChanges{Title: &title}, "rename")
	assert.True(t, apperrors.IsConflict(err))
}

func TestForwardLifecycle(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	forwarded, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	assert.True(t, forwarded.IsForwarded)
	assert.Equal(t, "e2", forwarded.CurrentHandlerID)
	assert.Equal(t, domain.TicketStatusPending, forwarded.Status)
	require.NotNil(t, forwarded.ForwardChainID)
	assert.Equal(t, "FWD-20260314-00001", *forwarded.ForwardChainID)

	approved, err := f.service.RespondToForward(context.Background(), f.actor("e2"), ticket.ID, workflow.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, approved.Status)

	responses := f.comments.byType(domain.CommentTypeResponse)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].ForwardStatus)
	assert.Equal(t, domain.ForwardStatusApproved, *responses[0].ForwardStatus)
}

func TestForwardRequiresReason(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "   ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestForwardUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "ghost", "to nowhere")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestForwardChainStableAcrossHops(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	first, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "first hop")
	require.NoError(t, err)

	second, err := f.service.Forward(context.Background(), f.actor("e2"), ticket.ID, "e3", "second hop")
	require.NoError(t, err)

	require.NotNil(t, second.ForwardChainID)
	assert.Equal(t, *first.ForwardChainID, *second.ForwardChainID)
}

func TestRespondOnlyRecipientMayAnswer(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	_, err = f.service.RespondToForward(context.Background(), f.actor("e3"), ticket.ID, workflow.ActionApprove)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestRespondWithoutHandoffConflicts(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.RespondToForward(context.Background(), f.actor("e1"), ticket.ID, workflow.ActionApprove)
	assert.True(t, apperrors.IsConflict(err))
}

func TestRespondTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	_, err = f.service.RespondToForward(context.Background(), f.actor("e2"), ticket.ID, workflow.ActionApprove)
	require.NoError(t, err)

	_, err = f.service.RespondToForward(context.Background(), f.actor("e2"), ticket.ID, workflow.ActionApprove)
	assert.True(t, apperrors.IsConflict(err))
}

func TestRespondReturnReopensTowardSender(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	returned, err := f.service.RespondToForward(context.Background(), f.actor("e2"), ticket.ID, workflow.ActionReturn)
	require.NoError(t, err)

	assert.Equal(t, "e1", returned.CurrentHandlerID)
	assert.Equal(t, domain.TicketStatusPending, returned.Status)

	// The sender is now the handoff recipient, so they can answer it.
	approved, err := f.service.RespondToForward(context.Background(), f.actor("e1"), ticket.ID, workflow.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, approved.Status)
}

func TestRespondInvalidAction(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.RespondToForward(context.Background(), f.actor("e1"), ticket.ID, workflow.ForwardAction("escalate"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.AddComment(context.Background(), f.actor("e1"), ticket.ID, "hello")
	require.NoError(t, err)
	_, err = f.service.AddAttachment(context.Background(), f.actor("e1"), ticket.ID, AttachmentInput{StorageKey: "k", FileName: "f.txt"})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), f.actor("e1"), ticket.ID))

	_, err = f.tickets.GetByID(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	comments, _ := f.comments.ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, comments)
	attachments, _ := f.attachments.ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, attachments)
}

func TestDeleteBestEffortCascade(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	// A failing dependent delete must not block the ticket delete.
	f.notifications.deleteErr = assert.AnError
	require.NoError(t, f.service.Delete(context.Background(), f.actor("e1"), ticket.ID))

	_, err := f.tickets.GetByID(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestDeleteForbiddenForNonCreatorEmployee(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	err := f.service.Delete(context.Background(), f.actor("e2"), ticket.ID)
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.service.Delete(context.Background(), f.actor("head-1"), ticket.ID))
}

func TestListScopesNonAdminsToOwnDepartment(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, "e1")

	other := domain.Ticket{
		ID:               "TKT-20260314-00099",
		Title:            "HR request",
		Status:           domain.TicketStatusPending,
		Priority:         domain.TicketPriorityMedium,
		DepartmentID:     "dept-2",
		CreatedBy:        "outsider",
		CurrentHandlerID: "outsider",
	}
	require.NoError(t, f.tickets.Create(context.Background(), &other))

	mine, err := f.service.List(context.Background(), f.actor("e1"), TicketListInput{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "dept-1", mine[0].DepartmentID)

	all, err := f.service.List(context.Background(), f.actor("admin"), TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEditCommentRules(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	comment, err := f.service.AddComment(context.Background(), f.actor("e1"), ticket.ID, "first draft")
	require.NoError(t, err)

	edited, err := f.service.EditComment(context.Background(), f.actor("e1"), comment.ID, "final draft")
	require.NoError(t, err)
	assert.Equal(t, "final draft", edited.Content)

	_, err = f.service.EditComment(context.Background(), f.actor("e2"), comment.ID, "vandalism")
	assert.True(t, apperrors.IsForbidden(err))

	// Handoff comments are write-once.
	_, err = f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)
	forwards := f.comments.byType(domain.CommentTypeForward)
	require.Len(t, forwards, 1)
	_, err = f.service.EditComment(context.Background(), f.actor("e1"), forwards[0].ID, "rewrite history")
	assert.True(t, apperrors.IsConflict(err))
}

func TestNotificationsExcludeActor(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	forwardedEvents := f.intents.byType(events.EventTicketForwarded)
	require.Len(t, forwardedEvents, 1)
	for _, intent := range forwardedEvents[0].Intents {
		assert.NotEqual(t, "e1", intent.RecipientID)
	}
}

func TestNotificationServicePersistsIntents(t *testing.T) {
	f := newFixture(t)

	// Rewire a dispatcher that feeds the notification pipeline.
	dispatcher := events.NewInMemoryDispatcher()
	notificationService := NewNotificationService(dispatcher, f.notifications, nil, nil)
	notificationService.RegisterHandlers()
	f.service = NewTicketService(TicketDependencies{
		TicketRepo:       f.tickets,
		CommentRepo:      f.comments,
		NotificationRepo: f.notifications,
		AttachmentRepo:   f.attachments,
		DepartmentRepo:   f.departments,
		UserRepo:         f.users,
		Allocator:        sequence.NewAllocator(sequence.NewMemoryStore()),
		Dispatcher:       dispatcher,
	})

	ticket := f.createTicket(t, "e1")
	_, err := f.service.Forward(context.Background(), f.actor("e1"), ticket.ID, "e2", "needs review")
	require.NoError(t, err)

	counts := f.notifications.recipients()
	assert.Positive(t, counts["e2"], "handoff recipient receives a notification")
	assert.Zero(t, counts["e1"], "actor receives nothing")
}

func TestGetForbiddenForOutsider(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "e1")

	_, _, err := f.service.Get(context.Background(), f.actor("outsider"), ticket.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, _, err = f.service.Get(context.Background(), f.actor("admin"), ticket.ID)
	assert.NoError(t, err)
}

func TestGetUnknownTicket(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.Get(context.Background(), f.actor("e1"), "TKT-20260314-00404")
	assert.True(t, apperrors.IsNotFound(err))
}
