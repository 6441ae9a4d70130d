package storage

import (
	"context"
	"sync"

	"fileflow/internal/dialect"
)

// Guard serializes whole operations against one Repository.
//
// A load is a sequence of dependent statements (drop, create, batches, copy,
// drop). Two loads interleaving on the same database could drop each
// other's staging tables, so every load and export runs under the Guard's
// lock with its own Session.
type Guard struct {
	mu   sync.Mutex
	repo Repository
}

// NewGuard wraps repo.
func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// Dialect returns the dialect of the guarded repository.
func (g *Guard) Dialect() dialect.Dialect { return g.repo.Dialect() }

// Do borrows a Session, runs fn with the lock held and releases the Session.
//
// Edge cases:
//   - If ctx is cancelled while waiting for the lock, Do still waits; the
//     cancellation is observed by the Session call that follows.
func (g *Guard) Do(ctx context.Context, fn func(Session) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.repo.Session(ctx)
	if err != nil {
		return err
	}
	defer s.Release()

	return fn(s)
}
