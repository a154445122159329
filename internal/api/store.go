package api

import (
	"sync"

	"github.com/google/uuid"
)

// HistoryStore persists generated summaries. Implementations must be safe
// for concurrent use.
type HistoryStore interface {
	Save(rec SummaryResponse) error
	Get(id string) (SummaryResponse, bool)
	// List returns up to limit records, newest first.
	List(limit int) []SummaryResponse
	Delete(id string) bool
	Close() error
}

// DefaultHistoryLimit bounds the in-memory store; the oldest record is
// dropped once the bound is reached.
const DefaultHistoryLimit = 200

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]SummaryResponse
	order   []string // insertion order, oldest first
	limit   int
}

// NewMemoryStore returns a bounded in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]SummaryResponse),
		limit:   DefaultHistoryLimit,
	}
}

func (s *MemoryStore) Save(rec SummaryResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	s.records[rec.ID] = rec
	for len(s.order) > s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}
	return nil
}

func (s *MemoryStore) Get(id string) (SummaryResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

func (s *MemoryStore) List(limit int) []SummaryResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]SummaryResponse, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[s.order[i]])
	}
	return out
}

func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *MemoryStore) Close() error { return nil }

func newSummaryID() string {
	return "sum_" + uuid.NewString()
}
