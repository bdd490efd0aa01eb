package turnlog

import (
	"context"
	"sync"
)

// InMemorySink is a bounded ring buffer used when no DATABASE_URL is
// configured. The gateway never depends on its contents surviving a
// restart; it exists purely for the operator-facing diagnostic route.
type InMemorySink struct {
	mu       sync.Mutex
	capacity int
	records  []Record
}

func NewInMemorySink(capacity int) *InMemorySink {
	if capacity <= 0 {
		capacity = 256
	}
	return &InMemorySink{capacity: capacity}
}

func (s *InMemorySink) Record(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	if len(s.records) > s.capacity {
		s.records = s.records[len(s.records)-s.capacity:]
	}
	return nil
}

func (s *InMemorySink) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]Record, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out, nil
}

func (s *InMemorySink) Close(ctx context.Context) error { return nil }
