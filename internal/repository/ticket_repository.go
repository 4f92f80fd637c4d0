package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/trackdesk/internal/domain"
)

// ErrVersionConflict signals a lost optimistic-concurrency race on a
// ticket row. Callers reload the ticket and retry the transition.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	DepartmentID *string
	CreatedBy    *string
	AssignedTo   *string
	HandlerID    *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	IsForwarded  *bool
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. Update performs a
// versioned read-modify-write: it fails with ErrVersionConflict when the
// stored row has moved past the snapshot being written.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, category, status, priority, department_id,
            created_by, original_creator_id, assigned_to, current_handler_id, due_date, tags, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1)
        RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.DepartmentID,
		ticket.CreatedBy,
		ticket.OriginalCreatorID,
		ticket.AssignedTo,
		ticket.CurrentHandlerID,
		ticket.DueDate,
		ticket.Tags,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return err
	}
	ticket.Version = 1
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, status=$4, priority=$5,
            department_id=$6, assigned_to=$7, current_handler_id=$8, forwarded_from_id=$9,
            forwarded_to_id=$10, forward_reason=$11, forward_chain_id=$12, is_forwarded=$13,
            due_date=$14, resolution=$15, tags=$16, version=version+1, updated_at=NOW()
        WHERE id=$17 AND version=$18`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Status,
		ticket.Priority,
		ticket.DepartmentID,
		ticket.AssignedTo,
		ticket.CurrentHandlerID,
		ticket.ForwardedFromID,
		ticket.ForwardedToID,
		ticket.ForwardReason,
		ticket.ForwardChainID,
		ticket.IsForwarded,
		ticket.DueDate,
		ticket.Resolution,
		ticket.Tags,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a missing row from a concurrent writer.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, category, status, priority, department_id,
               created_by, original_creator_id, assigned_to, current_handler_id,
               forwarded_from_id, forwarded_to_id, forward_reason, forward_chain_id,
               is_forwarded, due_date, resolution, tags, version, created_at, updated_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Status,
		&ticket.Priority,
		&ticket.DepartmentID,
		&ticket.CreatedBy,
		&ticket.OriginalCreatorID,
		&ticket.AssignedTo,
		&ticket.CurrentHandlerID,
		&ticket.ForwardedFromID,
		&ticket.ForwardedToID,
		&ticket.ForwardReason,
		&ticket.ForwardChainID,
		&ticket.IsForwarded,
		&ticket.DueDate,
		&ticket.Resolution,
		&ticket.Tags,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, title, description, category, status, priority, department_id,
                    created_by, original_creator_id, assigned_to, current_handler_id,
                    forwarded_from_id, forwarded_to_id, forward_reason, forward_chain_id,
                    is_forwarded, due_date, resolution, tags, version, created_at, updated_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.HandlerID != nil {
		args = append(args, *filter.HandlerID)
		clauses = append(clauses, fmt.Sprintf("current_handler_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.IsForwarded != nil {
		args = append(args, *filter.IsForwarded)
		clauses = append(clauses, fmt.Sprintf("is_forwarded=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Status,
			&ticket.Priority,
			&ticket.DepartmentID,
			&ticket.CreatedBy,
			&ticket.OriginalCreatorID,
			&ticket.AssignedTo,
			&ticket.CurrentHandlerID,
			&ticket.ForwardedFromID,
			&ticket.ForwardedToID,
			&ticket.ForwardReason,
			&ticket.ForwardChainID,
			&ticket.IsForwarded,
			&ticket.DueDate,
			&ticket.Resolution,
			&ticket.Tags,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
