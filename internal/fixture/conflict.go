package fixture

import (
	"context"
	"errors"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

var errSerialization = errors.New("fixture: could not serialize access")

// ConflictStore wraps a memory store the way a serializable database
// behaves under contention: the first Conflicts outermost units run fn to
// completion and are then rolled back and retried, like pgstore retries
// SQLSTATE 40001.
type ConflictStore struct {
	*store.Memory
	Conflicts int
	Attempts  int
}

// Conflicting returns a store over b's data whose next n units fail once
// after fn succeeds.
func (b *Books) Conflicting(n int) *ConflictStore {
	return &ConflictStore{Memory: b.Store, Conflicts: n}
}

// Atomic implements store.Store.
func (s *ConflictStore) Atomic(ctx context.Context, fn func(ctx context.Context, r store.Repository) error) error {
	if _, ok := store.UnitFrom(ctx, s.Memory); ok {
		return s.Memory.Atomic(ctx, fn)
	}
	for {
		s.Attempts++
		err := s.Memory.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
			if err := fn(ctx, r); err != nil {
				return err
			}
			if s.Conflicts > 0 {
				s.Conflicts--
				return errSerialization
			}
			return nil
		})
		if !errors.Is(err, errSerialization) {
			return err
		}
	}
}
