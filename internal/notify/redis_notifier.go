package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// RedisNotifier publishes notifications to a per-user Redis channel. A
// realtime frontend subscribes to `<prefix><user_id>`; messages for
// offline users are simply dropped here, the persisted notification row
// remains the durable copy.
type RedisNotifier struct {
	client        *redis.Client
	channelPrefix string
}

// NewRedisNotifier constructs the notifier.
func NewRedisNotifier(client *redis.Client, channelPrefix string) *RedisNotifier {
	if channelPrefix == "" {
		channelPrefix = "notify:"
	}
	return &RedisNotifier{client: client, channelPrefix: channelPrefix}
}

type wirePayload struct {
	ID       string                  `json:"id"`
	Type     domain.NotificationType `json:"type"`
	Message  string                  `json:"message"`
	TicketID *string                 `json:"ticket_id,omitempty"`
}

// Notify publishes the notification as JSON.
func (n *RedisNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	payload, err := json.Marshal(wirePayload{
		ID:       notification.ID,
		Type:     notification.Type,
		Message:  notification.Message,
		TicketID: notification.TicketID,
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channelPrefix+notification.RecipientID, payload).Err()
}
