package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	byID    map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*Entry),
		now:  time.Now,
	}
}

func (s *MemoryStore) Record(_ context.Context, e *Entry) error {
	if e == nil {
		return errors.New("cannot record nil entry")
	}
	prepare(e, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *e
	if _, ok := s.byID[e.ID]; ok {
		s.entries = slices.DeleteFunc(s.entries, func(x *Entry) bool { return x.ID == e.ID })
	}
	s.entries = append(s.entries, &stored)
	s.byID[e.ID] = &stored
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		c := *e
		out = append(out, &c)
	}

	slices.SortStableFunc(out, func(a, b *Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}
	c := *e
	return &c, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
