package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// InMemoryRepository keeps bookings and slots in process memory. Mutations
// of one provider's date are serialized through a keyed mutex, matching the
// advisory lock taken by the Postgres repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
	slots    map[string]*scheduling.TimeSlot

	keys sync.Map // lockKey -> *sync.Mutex
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[string]*Booking),
		slots:    make(map[string]*scheduling.TimeSlot),
	}
}

func (r *InMemoryRepository) lock(providerID string, date scheduling.Date) func() {
	m, _ := r.keys.LoadOrStore(lockKey(providerID, date), &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (r *InMemoryRepository) Reserve(ctx context.Context, b *Booking, check OccupancyCheck) (*Booking, error) {
	unlock := r.lock(b.ProviderID, b.Date)
	defer unlock()

	slots, _ := r.ListSlots(ctx, b.ProviderID, b.Date)
	if check != nil {
		if err := check(slots); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneBooking(b)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now

	slot := r.slotAtLocked(b.ProviderID, b.Date, b.StartTime)
	switch {
	case slot == nil:
		slot = &scheduling.TimeSlot{ID: uuid.NewString(), ProviderID: b.ProviderID, Date: b.Date, StartTime: b.StartTime}
		r.slots[slot.ID] = slot
	case !slot.Released():
		return nil, ErrSlotTaken
	}
	bookingID := stored.ID
	slot.EndTime = b.EndTime
	slot.IsAvailable = false
	slot.IsBlocked = false
	slot.BookingID = &bookingID

	r.bookings[stored.ID] = stored
	return cloneBooking(stored), nil
}

func (r *InMemoryRepository) slotAtLocked(providerID string, date scheduling.Date, start scheduling.Clock) *scheduling.TimeSlot {
	for _, s := range r.slots {
		if s.ProviderID == providerID && s.Date.Equal(date) && s.StartTime == start {
			return s
		}
	}
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Booking
	for _, b := range r.bookings {
		if filter.PartyID != "" && !b.IsParty(filter.PartyID) {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && b.Date.Time().Before(filter.From.Time()) {
			continue
		}
		if !filter.To.IsZero() && b.Date.Time().After(filter.To.Time()) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Time().Before(out[j].Date.Time())
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, from, to Status, release bool) (*Booking, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := r.lock(current.ProviderID, current.Date)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.Status != from {
		return nil, ErrStaleStatus
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	if release {
		r.releaseLocked(id)
	}
	return cloneBooking(b), nil
}

func (r *InMemoryRepository) UpdatePayment(ctx context.Context, id string, payment Payment) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	b.Payment = payment
	b.UpdatedAt = time.Now().UTC()
	return cloneBooking(b), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	unlock := r.lock(current.ProviderID, current.Date)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return ErrBookingNotFound
	}
	r.releaseLocked(id)
	delete(r.bookings, id)
	return nil
}

func (r *InMemoryRepository) releaseLocked(bookingID string) {
	for _, s := range r.slots {
		if s.BookingID != nil && *s.BookingID == bookingID {
			s.IsAvailable = true
			s.BookingID = nil
		}
	}
}

func (r *InMemoryRepository) ListSlots(ctx context.Context, providerID string, date scheduling.Date) ([]scheduling.TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []scheduling.TimeSlot
	for _, s := range r.slots {
		if s.ProviderID == providerID && s.Date.Equal(date) {
			out = append(out, cloneSlot(*s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *InMemoryRepository) Block(ctx context.Context, slot scheduling.TimeSlot, check OccupancyCheck) (scheduling.TimeSlot, error) {
	unlock := r.lock(slot.ProviderID, slot.Date)
	defer unlock()

	slots, _ := r.ListSlots(ctx, slot.ProviderID, slot.Date)
	if check != nil {
		if err := check(slots); err != nil {
			return scheduling.TimeSlot{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.slotAtLocked(slot.ProviderID, slot.Date, slot.StartTime)
	switch {
	case existing == nil:
		existing = &scheduling.TimeSlot{ID: uuid.NewString(), ProviderID: slot.ProviderID, Date: slot.Date, StartTime: slot.StartTime}
		r.slots[existing.ID] = existing
	case !existing.Released():
		return scheduling.TimeSlot{}, ErrSlotTaken
	}
	existing.EndTime = slot.EndTime
	existing.IsAvailable = true
	existing.IsBlocked = true
	existing.BookingID = nil
	return cloneSlot(*existing), nil
}

func (r *InMemoryRepository) Unblock(ctx context.Context, providerID, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[slotID]
	if !ok || s.ProviderID != providerID || !s.IsBlocked || s.BookingID != nil {
		return ErrSlotNotFound
	}
	delete(r.slots, slotID)
	return nil
}

func cloneBooking(b *Booking) *Booking {
	out := *b
	out.ServiceIDs = append([]string(nil), b.ServiceIDs...)
	if b.Payment.PaidAt != nil {
		paidAt := *b.Payment.PaidAt
		out.Payment.PaidAt = &paidAt
	}
	return &out
}

func cloneSlot(s scheduling.TimeSlot) scheduling.TimeSlot {
	if s.BookingID != nil {
		id := *s.BookingID
		s.BookingID = &id
	}
	return s
}
