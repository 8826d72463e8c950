package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

var tracer = otel.Tracer("scheduler.internal.availability")

var ErrProviderNotFound = errors.New("availability: provider not found")

type HoursSource interface {
	Get(ctx context.Context, providerID string) (scheduling.WeeklyHours, error)
}

// SlotLister returns the persisted slots of one provider's date.
type SlotLister interface {
	ListSlots(ctx context.Context, providerID string, date scheduling.Date) ([]scheduling.TimeSlot, error)
}

type PartyDirectory interface {
	Get(ctx context.Context, id string) (*directory.Party, error)
}

// Service answers "what can be booked on this date".
type Service struct {
	hours   HoursSource
	slots   SlotLister
	parties PartyDirectory
	gen     *scheduling.Generator
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

func NewService(hours HoursSource, slots SlotLister, parties PartyDirectory, gen *scheduling.Generator, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if hours == nil || slots == nil || parties == nil {
		panic("availability: hours, slots and parties are required")
	}
	if gen == nil {
		panic("availability: slot generator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{hours: hours, slots: slots, parties: parties, gen: gen, metrics: m, logger: logger}
}

// ForDate generates the day's candidates and overlays persisted slots. The
// result is never cached; it reflects the store at call time.
func (s *Service) ForDate(ctx context.Context, providerID string, date scheduling.Date) (scheduling.Availability, error) {
	ctx, span := tracer.Start(ctx, "availability.for_date")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.provider_id", providerID),
		attribute.String("scheduler.date", date.String()),
	)
	started := time.Now()
	defer func() { s.metrics.ObserveAvailability(time.Since(started).Seconds()) }()

	party, err := s.parties.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, directory.ErrPartyNotFound) {
			return scheduling.Availability{}, ErrProviderNotFound
		}
		return scheduling.Availability{}, fmt.Errorf("availability: load provider: %w", err)
	}
	if party.Role != identity.RoleProvider {
		return scheduling.Availability{}, ErrProviderNotFound
	}

	week, err := s.hours.Get(ctx, providerID)
	if err != nil {
		span.RecordError(err)
		return scheduling.Availability{}, fmt.Errorf("availability: load hours: %w", err)
	}
	hours, candidates := s.gen.GenerateForDate(date, week)

	persisted, err := s.slots.ListSlots(ctx, providerID, date)
	if err != nil {
		span.RecordError(err)
		return scheduling.Availability{}, fmt.Errorf("availability: list slots: %w", err)
	}

	out := scheduling.Availability{
		ProviderID:   providerID,
		Date:         date,
		WorkingHours: hours,
		SlotWidth:    s.gen.Width(),
		Slots:        scheduling.Merge(candidates, persisted),
	}
	s.logger.Debug("availability computed", "provider_id", providerID, "date", date, "candidates", len(candidates), "persisted", len(persisted))
	return out, nil
}
