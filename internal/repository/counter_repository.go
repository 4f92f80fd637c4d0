package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/trackdesk/internal/sequence"
)

// counterRepository is the Postgres-backed sequence.CounterStore. The
// guarded single-statement UPDATE makes the increment linearizable per
// (prefix, date_key) row without explicit locking.
type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository constructs the store.
func NewCounterRepository(pool *pgxpool.Pool) sequence.CounterStore {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) FetchOrCreate(ctx context.Context, prefix, dateKey string) (sequence.CounterRef, error) {
	const query = `
        INSERT INTO sequence_counters (prefix, date_key, counter)
        VALUES ($1,$2,0)
        ON CONFLICT (prefix, date_key) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, prefix, dateKey); err != nil {
		return sequence.CounterRef{}, err
	}
	return sequence.CounterRef{Prefix: prefix, DateKey: dateKey}, nil
}

func (r *counterRepository) IncrementAtomic(ctx context.Context, ref sequence.CounterRef) (int, error) {
	const query = `
        UPDATE sequence_counters SET counter=counter+1
        WHERE prefix=$1 AND date_key=$2 AND counter < $3
        RETURNING counter`
	var counter int
	err := r.pool.QueryRow(ctx, query, ref.Prefix, ref.DateKey, sequence.MaxSequence).Scan(&counter)
	if errors.Is(err, pgx.ErrNoRows) {
		// The row exists (FetchOrCreate ran first), so no rows means the
		// counter is already at its ceiling.
		return 0, sequence.ErrSequenceExhausted
	}
	if err != nil {
		return 0, err
	}
	return counter, nil
}
