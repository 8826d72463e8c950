package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryService keeps the trail in process memory when no audit database
// is configured.
type MemoryService struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryService() *MemoryService {
	return &MemoryService{}
}

func (m *MemoryService) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.ServiceIDs = append([]string(nil), event.ServiceIDs...)
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

func (m *MemoryService) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if filter.BookingID == "" && filter.ProviderID == "" {
		return nil, fmt.Errorf("audit: booking or provider filter required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if filter.BookingID != "" && e.BookingID != filter.BookingID {
			continue
		}
		if filter.ProviderID != "" && e.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
