package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// InMemoryRepository keeps services in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	services map[string]scheduling.Service
	order    []string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{services: make(map[string]scheduling.Service)}
}

func (r *InMemoryRepository) Create(ctx context.Context, svc scheduling.Service) (scheduling.Service, error) {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[svc.ID]; !exists {
		r.order = append(r.order, svc.ID)
	}
	r.services[svc.ID] = svc
	return svc, nil
}

func (r *InMemoryRepository) ListByProvider(ctx context.Context, providerID string) ([]scheduling.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scheduling.Service, 0)
	for _, id := range r.order {
		svc := r.services[id]
		if svc.ProviderID == providerID && svc.IsActive {
			out = append(out, svc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Resolve(ctx context.Context, providerID string, ids []string) ([]scheduling.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scheduling.Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := r.services[id]
		if ok && svc.ProviderID == providerID && svc.IsActive {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Lookup(ctx context.Context, ids []string) ([]scheduling.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scheduling.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := r.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, providerID, serviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[serviceID]
	if !ok || svc.ProviderID != providerID || !svc.IsActive {
		return ErrServiceNotFound
	}
	svc.IsActive = false
	r.services[serviceID] = svc
	return nil
}
