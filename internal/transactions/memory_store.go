package transactions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Transaction
	all  []*Transaction
}

// NewMemoryStore creates an in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Transaction)}
}

func (s *MemoryStore) Insert(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	s.byID[cp.ID] = &cp
	s.all = append(s.all, &cp)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *MemoryStore) CountByMerchant(ctx context.Context, merchant string, since, until time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, tx := range s.all {
		if tx.MerchantName == merchant && inWindow(tx.OccurredAt, since, until) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) AvgAmountByCategory(ctx context.Context, category string, since, until time.Time) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	n := 0
	for _, tx := range s.all {
		if tx.MerchantCategory == category && inWindow(tx.OccurredAt, since, until) {
			sum += tx.Amount
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

func inWindow(at, since, until time.Time) bool {
	return at.After(since) && !at.After(until)
}
