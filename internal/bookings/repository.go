package bookings

import (
	"context"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// OccupancyCheck inspects a provider's slots for one date and rejects the
// pending write by returning an error. Repositories call it while holding the
// per-(provider, date) critical section, so the answer cannot go stale before
// the write commits.
type OccupancyCheck func(slots []scheduling.TimeSlot) error

// Repository persists bookings and their paired time slots.
type Repository interface {
	// Reserve writes b and its occupied slot atomically after check passes.
	// A released slot at the same start time is reused.
	Reserve(ctx context.Context, b *Booking, check OccupancyCheck) (*Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)
	// UpdateStatus moves a booking from -> to, failing with ErrStaleStatus if
	// the stored status is no longer from. When release is set the paired
	// slot is freed in the same transaction.
	UpdateStatus(ctx context.Context, id string, from, to Status, release bool) (*Booking, error)
	UpdatePayment(ctx context.Context, id string, payment Payment) (*Booking, error)
	// Delete frees the paired slot, then removes the booking.
	Delete(ctx context.Context, id string) error

	ListSlots(ctx context.Context, providerID string, date scheduling.Date) ([]scheduling.TimeSlot, error)
	// Block stores a manual block after check passes.
	Block(ctx context.Context, slot scheduling.TimeSlot, check OccupancyCheck) (scheduling.TimeSlot, error)
	Unblock(ctx context.Context, providerID, slotID string) error
}

func lockKey(providerID string, date scheduling.Date) string {
	return providerID + "|" + date.String()
}
