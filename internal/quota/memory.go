package quota

import (
	"context"
	"sync"

	"cramdesk/internal/domain"
)

// MemoryStore is an in-process AccountStore guarded by a mutex. It backs
// tests and local development where Postgres is not available; the
// conditional update has the same compare-and-swap semantics as the
// database-backed store.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*domain.Account)}
}

// Put inserts or replaces an account.
func (s *MemoryStore) Put(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *account
	s.accounts[account.ID] = &copied
}

// Read returns a copy of the stored account or domain.ErrNotFound.
func (s *MemoryStore) Read(ctx context.Context, accountID string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

// ConditionalUpdate swaps the page balance only when it still equals
// expected.
func (s *MemoryStore) ConditionalUpdate(ctx context.Context, accountID string, expected, updated int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if account.PagesRemaining != expected {
		return false, nil
	}
	account.PagesRemaining = updated
	return true, nil
}

var _ AccountStore = (*MemoryStore)(nil)
