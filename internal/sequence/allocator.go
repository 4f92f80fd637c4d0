package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/spec-kit/trackdesk/pkg/util"
)

// ErrSequenceExhausted is returned when a (prefix, day) counter has
// already issued MaxSequence identifiers.
var ErrSequenceExhausted = errors.New("sequence counter exhausted")

// CounterRef identifies one persisted counter row.
type CounterRef struct {
	Prefix  string
	DateKey string
}

// CounterStore persists per-(prefix, day) counters. IncrementAtomic must
// be linearizable per key: concurrent callers must never observe the same
// value, and the counter must not advance past MaxSequence. A naive
// read-then-write implementation is not acceptable.
type CounterStore interface {
	FetchOrCreate(ctx context.Context, prefix, dateKey string) (CounterRef, error)
	IncrementAtomic(ctx context.Context, ref CounterRef) (int, error)
}

// Allocator issues formatted identifiers from a CounterStore.
type Allocator struct {
	store CounterStore
	now   func() time.Time
}

// NewAllocator constructs an allocator reading the calendar date in UTC.
func NewAllocator(store CounterStore) *Allocator {
	return &Allocator{store: store, now: time.Now}
}

// WithClock overrides the allocator's clock. Intended for tests.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// Generate issues the next identifier for prefix, dated today (UTC).
// No identifier is issued when the day's counter is exhausted.
func (a *Allocator) Generate(ctx context.Context, prefix string) (string, error) {
	normalized, err := NormalizePrefix(prefix)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error(), nil)
	}

	dateKey := a.now().UTC().Format("20060102")
	ref, err := a.store.FetchOrCreate(ctx, normalized, dateKey)
	if err != nil {
		return "", err
	}

	seq, err := a.store.IncrementAtomic(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrSequenceExhausted) {
			return "", apperrors.NewOverflow(
				fmt.Sprintf("sequence exhausted for %s on %s", normalized, dateKey),
				map[string]any{"prefix": normalized, "date_key": dateKey},
			)
		}
		return "", err
	}

	return fmt.Sprintf("%s-%s-%05d", normalized, dateKey, seq), nil
}
