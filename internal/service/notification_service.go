package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/trackdesk/internal/domain"
	"github.com/spec-kit/trackdesk/internal/events"
	"github.com/spec-kit/trackdesk/internal/notify"
	"github.com/spec-kit/trackdesk/internal/repository"
	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// NotificationService materializes the notification intents carried on
// ticket events: one persisted row per intent, then a best-effort push
// through the transport. Failures at either step are logged and dropped;
// workflow correctness never depends on delivery.
type NotificationService struct {
	dispatcher    events.Dispatcher
	notifications repository.NotificationRepository
	notifier      notify.Notifier
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifications repository.NotificationRepository, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:    dispatcher,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to intent-bearing events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketForwarded, n.handleEvent)
	n.dispatcher.Subscribe(events.EventForwardResponded, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	for _, intent := range event.Intents {
		ticketID := intent.TicketID
		notification := domain.Notification{
			ID:          uuid.NewString(),
			RecipientID: intent.RecipientID,
			Type:        intent.Type,
			Message:     intent.Message,
		}
		if ticketID != "" {
			notification.TicketID = &ticketID
		}

		if err := n.notifications.Create(ctx, &notification); err != nil {
			n.logger.Warn("notification persist failed",
				zap.String("recipient_id", intent.RecipientID),
				zap.String("type", string(intent.Type)),
				zap.Error(err))
			continue
		}
		if n.notifier == nil {
			continue
		}
		if err := n.notifier.Notify(ctx, notification); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("recipient_id", intent.RecipientID),
				zap.String("type", string(intent.Type)),
				zap.Error(err))
		}
	}
	return nil
}

// ListForUser returns the user's notifications.
func (n *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	result, err := n.notifications.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// MarkRead flags one of the user's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := n.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
