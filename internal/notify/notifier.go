// Package notify defines the best-effort notification transport. The
// core never depends on delivery succeeding; transport errors are logged
// by callers and otherwise dropped.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// Notifier delivers one notification to one user, best-effort.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// LogNotifier writes notifications to the log. Used in development and
// as the fallback when no realtime transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs the notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.logger.Info("notification",
		zap.String("recipient_id", notification.RecipientID),
		zap.String("type", string(notification.Type)),
		zap.String("message", notification.Message))
	return nil
}
