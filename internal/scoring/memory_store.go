package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	byTx map[string]*RiskScore
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTx: make(map[string]*RiskScore)}
}

func (s *MemoryStore) Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rs
	if existing, ok := s.byTx[rs.TransactionID]; ok {
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.byTx[rs.TransactionID] = &stored

	out := stored
	return &out, nil
}

// restore reinstates the previous row for a transaction, or removes the row
// when there was none. Unwinds an upsert whose enclosing commit failed.
func (s *MemoryStore) restore(transactionID string, prev *RiskScore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev == nil {
		delete(s.byTx, transactionID)
		return
	}
	cp := *prev
	s.byTx[transactionID] = &cp
}

func (s *MemoryStore) GetByTransaction(ctx context.Context, transactionID string) (*RiskScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.byTx[transactionID]
	if !ok {
		return nil, ErrScoreNotFound
	}
	out := *rs
	return &out, nil
}
