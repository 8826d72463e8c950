package directory

import (
	"context"
	"sync"
	"time"
)

// Repository stores party display records.
type Repository interface {
	Get(ctx context.Context, id string) (*Party, error)
	Upsert(ctx context.Context, party *Party) (*Party, error)
}

// InMemoryRepository keeps parties in process memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	parties map[string]*Party
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{parties: make(map[string]*Party)}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parties[id]
	if !ok {
		return nil, ErrPartyNotFound
	}
	out := *p
	return &out, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, party *Party) (*Party, error) {
	stored := *party
	stored.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	r.parties[stored.ID] = &stored
	r.mu.Unlock()

	out := stored
	return &out, nil
}
