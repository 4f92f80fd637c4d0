package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/trackdesk/internal/authz"
	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/events"
	"github.com/spec-kit/trackdesk/internal/repository"
	"github.com/spec-kit/trackdesk/internal/sequence"
	"github.com/spec-kit/trackdesk/internal/workflow"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

const (
	ticketPrefix = "TKT"
	chainPrefix  = "FWD"

	// conflictRetries bounds the internal retry loop on a lost
	// read-modify-write race before the conflict surfaces to the caller.
	conflictRetries = 3
)

// TicketService coordinates ticket workflows: authorization, id
// allocation, transition application, audit trail, and event publication.
type TicketService struct {
	tickets       repository.TicketRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	attachments   repository.AttachmentRepository
	departments   repository.DepartmentRepository
	users         repository.UserRepository
	allocator     *sequence.Allocator
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	CommentRepo      repository.CommentRepository
	NotificationRepo repository.NotificationRepository
	AttachmentRepo   repository.AttachmentRepository
	DepartmentRepo   repository.DepartmentRepository
	UserRepo         repository.UserRepository
	Allocator        *sequence.Allocator
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		comments:      deps.CommentRepo,
		notifications: deps.NotificationRepo,
		attachments:   deps.AttachmentRepo,
		departments:   deps.DepartmentRepo,
		users:         deps.UserRepo,
		allocator:     deps.Allocator,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *TicketService) WithClock(now func() time.Time) *TicketService {
	s.now = now
	return s
}

// TicketCreateInput describes ticket creation payload. CreatedBy, when
// set to someone other than the actor, requires an admin actor.
type TicketCreateInput struct {
	Title        string
	Description  string
	Category     string
	Priority     domain.TicketPriority
	DepartmentID string
	CreatedBy    string
	AssignedTo   *string
	DueDate      *time.Time
	Tags         []string
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	DepartmentID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	AssignedTo   *string
	HandlerID    *string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// Create registers a new pending ticket.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.Priority != "" && !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"id": input.DepartmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department inactive", map[string]any{"id": dept.ID})
	}
	if !authz.CanCreateIn(actor, dept.ID) {
		return nil, apperrors.NewForbidden("cannot create tickets in this department")
	}

	creator := actor.ID
	if input.CreatedBy != "" && input.CreatedBy != actor.ID {
		if actor.Role != domain.RoleAdmin {
			return nil, apperrors.NewForbidden("only admins may create tickets on behalf of others")
		}
		if _, err := s.lookupUser(ctx, input.CreatedBy); err != nil {
			return nil, err
		}
		creator = input.CreatedBy
	}
	if input.AssignedTo != nil {
		if _, err := s.lookupUser(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	id, err := s.allocator.Generate(ctx, ticketPrefix)
	if err != nil {
		return nil, err
	}

	result := workflow.Create(workflow.CreateInput{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Category:     input.Category,
		Priority:     input.Priority,
		DepartmentID: dept.ID,
		CreatedBy:    creator,
		ActorID:      actor.ID,
		AssignedTo:   input.AssignedTo,
		DueDate:      input.DueDate,
		Tags:         input.Tags,
	}, dept.HeadUserID, s.now())

	ticket := result.Ticket
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Intents:  result.Intents,
		Payload: events.TicketCreatedPayload{
			DepartmentID: ticket.DepartmentID,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
			AssignedTo:   ticket.AssignedTo,
		},
	})
	return &ticket, nil
}

// Update applies a direct field update. The remark is mandatory and is
// persisted as an update comment on the ticket's audit trail.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, ticketID string, changes workflow.UpdateChanges, remark string) (*domain.Ticket, error) {
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return nil, apperrors.NewValidationError("update remark is required", nil)
	}
	if changes.AssignedTo != nil {
		if _, err := s.lookupUser(ctx, *changes.AssignedTo); err != nil {
			return nil, err
		}
	}

	var result workflow.Result
	saved, err := s.mutateTicket(ctx, ticketID, func(ticket domain.Ticket) (workflow.Result, error) {
		if !authz.CanUpdate(actor, &ticket) {
			return workflow.Result{}, apperrors.NewForbidden("not allowed to update this ticket")
		}
		var err error
		result, err = workflow.ApplyUpdate(ticket, actor, changes, remark, s.now())
		return result, err
	})
	if err != nil {
		return nil, err
	}
	result.Ticket = *saved

	s.appendAudit(ctx, result.Comment)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: result.Ticket.ID,
		ActorID:  actor.ID,
		Intents:  result.Intents,
		Payload: events.TicketUpdatedPayload{
			Status:   result.Ticket.Status,
			Priority: result.Ticket.Priority,
			Remark:   remark,
		},
	})
	ticket := result.Ticket
	return &ticket, nil
}

// Forward hands the ticket off to another user. The first forward on a
// ticket allocates its forward chain id; later handoffs reuse it.
func (s *TicketService) Forward(ctx context.Context, actor *domain.User, ticketID, toUserID, reason string) (*domain.Ticket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("forward reason is required", nil)
	}
	recipient, err := s.lookupUser(ctx, toUserID)
	if err != nil {
		return nil, err
	}

	var result workflow.Result
	saved, err := s.mutateTicket(ctx, ticketID, func(ticket domain.Ticket) (workflow.Result, error) {
		if !authz.CanForward(actor, &ticket) {
			return workflow.Result{}, apperrors.NewForbidden("not allowed to forward this ticket")
		}
		chainID := ""
		if ticket.ForwardChainID == nil {
			var err error
			chainID, err = s.allocator.Generate(ctx, chainPrefix)
			if err != nil {
				return workflow.Result{}, err
			}
		}
		result = workflow.Forward(ticket, actor, recipient, reason, chainID, s.now())
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	result.Ticket = *saved

	s.appendAudit(ctx, result.Comment)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketForwarded,
		TicketID: result.Ticket.ID,
		ActorID:  actor.ID,
		Intents:  result.Intents,
		Payload: events.TicketForwardedPayload{
			ForwardedFromID: actor.ID,
			ForwardedToID:   recipient.ID,
			Reason:          reason,
			ForwardChainID:  deref(result.Ticket.ForwardChainID),
		},
	})
	ticket := result.Ticket
	return &ticket, nil
}

// RespondToForward records the handoff recipient's answer. A handoff can
// be answered once: after an approve or reject the ticket is no longer
// pending and further responses conflict. A return re-opens the handoff
// toward the original sender.
func (s *TicketService) RespondToForward(ctx context.Context, actor *domain.User, ticketID string, action workflow.ForwardAction) (*domain.Ticket, error) {
	switch action {
	case workflow.ActionApprove, workflow.ActionReject, workflow.ActionReturn:
	default:
		return nil, apperrors.NewValidationError("action must be approve, reject, or return", nil)
	}

	var result workflow.Result
	saved, err := s.mutateTicket(ctx, ticketID, func(ticket domain.Ticket) (workflow.Result, error) {
		if !ticket.IsForwarded || ticket.ForwardedToID == nil {
			return workflow.Result{}, apperrors.NewConflict("ticket has no handoff to respond to", nil)
		}
		if actor.ID != *ticket.ForwardedToID {
			return workflow.Result{}, apperrors.NewForbidden("only the handoff recipient may respond")
		}
		if ticket.Status != domain.TicketStatusPending {
			return workflow.Result{}, apperrors.NewConflict("handoff already answered", nil)
		}
		var err error
		result, err = workflow.Respond(ticket, actor, action, s.now())
		return result, err
	})
	if err != nil {
		return nil, err
	}
	result.Ticket = *saved

	s.appendAudit(ctx, result.Comment)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventForwardResponded,
		TicketID: result.Ticket.ID,
		ActorID:  actor.ID,
		Intents:  result.Intents,
		Payload: events.ForwardRespondedPayload{
			Action: action,
			Status: result.Ticket.Status,
		},
	})
	ticket := result.Ticket
	return &ticket, nil
}

// Delete removes a ticket and cascades its comments, notifications, and
// attachments. The cascade is best-effort: a failed dependent delete is
// logged and does not block the ticket delete.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if !authz.CanDelete(actor, ticket) {
		return apperrors.NewForbidden("not allowed to delete this ticket")
	}

	if err := s.comments.DeleteByTicket(ctx, ticketID); err != nil {
		s.logger.Warn("cascade delete comments failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := s.notifications.DeleteByTicket(ctx, ticketID); err != nil {
		s.logger.Warn("cascade delete notifications failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := s.attachments.DeleteByTicket(ctx, ticketID); err != nil {
		s.logger.Warn("cascade delete attachments failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.TicketDeletedPayload{DepartmentID: ticket.DepartmentID},
	})
	return nil
}

// Get fetches a ticket with its comment thread, ensuring access.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, nil
}

// List returns tickets visible to the actor. Non-admins are scoped to
// their own department.
func (s *TicketService) List(ctx context.Context, actor *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		DepartmentID: input.DepartmentID,
		Statuses:     input.Statuses,
		Priorities:   input.Priorities,
		AssignedTo:   input.AssignedTo,
		HandlerID:    input.HandlerID,
		SearchTerm:   input.SearchTerm,
		Limit:        input.Limit,
		Offset:       input.Offset,
	}
	if actor.Role != domain.RoleAdmin && actor.DepartmentID != nil {
		filter.DepartmentID = actor.DepartmentID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// AddComment posts a regular comment on the ticket thread.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to comment on this ticket")
	}
	comment := &domain.Comment{
		ID:       uuid.NewString(),
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Type:     domain.CommentTypeRegular,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return comment, nil
}

// EditComment edits a regular comment. Only its author may edit it;
// handoff-generated comments are write-once.
func (s *TicketService) EditComment(ctx context.Context, actor *domain.User, commentID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", nil)
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("comment", map[string]any{"id": commentID})
		}
		return nil, apperrors.MapError(err)
	}
	if comment.Type != domain.CommentTypeRegular {
		return nil, apperrors.NewConflict("audit comments cannot be edited", nil)
	}
	if comment.AuthorID != actor.ID {
		return nil, apperrors.NewForbidden("only the author may edit a comment")
	}
	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return comment, nil
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// AddAttachment records attachment metadata on a ticket.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.User, ticketID string, input AttachmentInput) (*domain.FileAttachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to attach files to this ticket")
	}
	attachment := &domain.FileAttachment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		UploadedBy: actor.ID,
		StorageKey: input.StorageKey,
		FileName:   input.FileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// ListAttachments returns attachment metadata for a ticket.
func (s *TicketService) ListAttachments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.FileAttachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// mutateTicket runs a read-modify-write transition with bounded retries
// on version conflicts. The transition callback sees a fresh snapshot on
// every attempt. The returned snapshot carries the persisted version.
func (s *TicketService) mutateTicket(ctx context.Context, ticketID string, transition func(domain.Ticket) (workflow.Result, error)) (*domain.Ticket, error) {
	for attempt := 0; attempt <= conflictRetries; attempt++ {
		ticket, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		result, err := transition(*ticket)
		if err != nil {
			return nil, err
		}

		next := result.Ticket
		next.Version = ticket.Version
		err = s.tickets.Update(ctx, &next)
		if err == nil {
			return &next, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("ticket version conflict, retrying",
				zap.String("ticket_id", ticketID), zap.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return nil, apperrors.NewConflict("concurrent ticket modification", map[string]any{"id": ticketID})
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) lookupUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *TicketService) canView(actor *domain.User, ticket *domain.Ticket) bool {
	return authz.CanUpdate(actor, ticket) || actor.ID == ticket.CreatedBy
}

// appendAudit persists an audit comment. Failures are logged, never
// surfaced: the ticket mutation has already committed and audit writes
// must not undo it.
func (s *TicketService) appendAudit(ctx context.Context, comment *domain.Comment) {
	if comment == nil {
		return
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("audit comment append failed",
			zap.String("ticket_id", comment.TicketID),
			zap.String("type", string(comment.Type)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
