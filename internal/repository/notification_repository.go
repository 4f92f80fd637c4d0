package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	DeleteByTicket(ctx context.Context, ticketID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository constructs repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (id, recipient_id, type, message, ticket_id, read)
        VALUES ($1,$2,$3,$4,$5,false)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		notification.ID,
		notification.RecipientID,
		notification.Type,
		notification.Message,
		notification.TicketID,
	).Scan(&notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	query := `
        SELECT id, recipient_id, type, message, ticket_id, read, created_at
        FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND read=false`
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.RecipientID,
			&notification.Type,
			&notification.Message,
			&notification.TicketID,
			&notification.Read,
			&notification.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, notification)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	const query = `
        UPDATE notifications SET read=true
        WHERE id=$1 AND recipient_id=$2`
	_, err := r.pool.Exec(ctx, query, id, recipientID)
	return err
}

func (r *notificationRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE ticket_id=$1`, ticketID)
	return err
}
