package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/appointment-scheduler/internal/audit"
	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

var bookingsTracer = otel.Tracer("scheduler.internal.bookings")

// ServiceResolver looks up catalog entries in request order. Resolve only
// returns active services of providerID; Lookup returns any state, for
// displaying bookings made before a service was retired. Ids that do not
// qualify are omitted.
type ServiceResolver interface {
	Resolve(ctx context.Context, providerID string, ids []string) ([]scheduling.Service, error)
	Lookup(ctx context.Context, ids []string) ([]scheduling.Service, error)
}

type PartyDirectory interface {
	Get(ctx context.Context, id string) (*directory.Party, error)
}

type HoursSource interface {
	Get(ctx context.Context, providerID string) (scheduling.WeeklyHours, error)
}

// EventPublisher is satisfied by the outbox stores.
type EventPublisher interface {
	Insert(ctx context.Context, aggregateID string, eventType string, payload any) (uuid.UUID, error)
}

type Auditor interface {
	LogEvent(ctx context.Context, event audit.Event) error
}

type HistoryReader interface {
	QueryEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// Service owns the booking lifecycle.
type Service struct {
	repo     Repository
	services ServiceResolver
	parties  PartyDirectory
	hours    HoursSource
	logger   *logging.Logger

	events  EventPublisher
	auditor Auditor
	history HistoryReader
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Service)

func WithEvents(p EventPublisher) Option { return func(s *Service) { s.events = p } }

// WithAuditor records lifecycle changes. When a also reads history,
// Service.History is enabled.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
		if h, ok := a.(HistoryReader); ok {
			s.history = h
		}
	}
}

func WithMetrics(m *metrics.SchedulingMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone that wall-clock booking times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService constructs a bookings service.
func NewService(repo Repository, services ServiceResolver, parties PartyDirectory, hours HoursSource, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if services == nil {
		panic("bookings: service resolver required")
	}
	if parties == nil {
		panic("bookings: party directory required")
	}
	if hours == nil {
		panic("bookings: hours source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:     repo,
		services: services,
		parties:  parties,
		hours:    hours,
		logger:   logger,
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books req.ServiceIDs back to back from req.StartTime. The overlap
// check and both writes run inside the repository's per-(provider, date)
// critical section.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateRequest) (view *View, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	defer func() { s.finish(span, err) }()

	if err := actor.Validate(); err != nil {
		return nil, forbidden("caller identity is required")
	}
	parsed, err := req.normalize()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("scheduler.provider_id", req.ProviderID),
		attribute.String("scheduler.date", parsed.date.String()),
		attribute.String("scheduler.start_time", parsed.start.String()),
	)

	switch {
	case actor.IsProvider():
		if req.ProviderID != actor.ID {
			return nil, forbidden("providers may only book onto their own calendar")
		}
		if req.CustomerID == "" {
			return nil, invalid("customerId", "is required when a provider books")
		}
		if req.CustomerID == actor.ID {
			return nil, invalid("customerId", "must not be the provider")
		}
		if req.Source == "" {
			req.Source = SourceProviderAssisted
		}
	default:
		if req.CustomerID != "" && req.CustomerID != actor.ID {
			return nil, forbidden("customers may only book for themselves")
		}
		req.CustomerID = actor.ID
		if req.Source == "" {
			req.Source = SourceSelfService
		}
	}
	defer func() {
		result := "ok"
		if err != nil {
			result = resultLabel(err)
		}
		s.metrics.ObserveCreated(string(req.Source), result)
	}()

	provider, err := s.parties.Get(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, directory.ErrPartyNotFound) {
			return nil, notFound("provider", req.ProviderID)
		}
		return nil, fmt.Errorf("bookings: load provider: %w", err)
	}
	if provider.Role != identity.RoleProvider {
		return nil, notFound("provider", req.ProviderID)
	}
	customer, err := s.parties.Get(ctx, req.CustomerID)
	switch {
	case errors.Is(err, directory.ErrPartyNotFound):
		if actor.IsProvider() {
			return nil, notFound("customer", req.CustomerID)
		}
		customer = nil
	case err != nil:
		return nil, fmt.Errorf("bookings: load customer: %w", err)
	}

	services, err := s.services.Resolve(ctx, req.ProviderID, req.ServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("bookings: resolve services: %w", err)
	}
	if len(services) != len(req.ServiceIDs) {
		return nil, notFound("services", missingIDs(req.ServiceIDs, services)...)
	}

	quote, err := scheduling.QuoteServices(services, parsed.start)
	if err != nil {
		if errors.Is(err, scheduling.ErrCrossesMidnight) {
			return nil, invalid("startTime", "appointment of %d minutes would end after midnight", totalDuration(services))
		}
		return nil, invalid("serviceIds", "%v", err)
	}

	week, err := s.hours.Get(ctx, req.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("bookings: load working hours: %w", err)
	}
	day := week.ForDate(parsed.date)
	if !day.IsOpen {
		return nil, invalid("date", "provider does not work on %s", parsed.date.Weekday())
	}
	if !day.Contains(quote.Interval) {
		return nil, invalid("startTime", "%s is outside working hours %s-%s", quote.Interval, day.Open, day.Close)
	}

	candidate := &Booking{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		ServiceIDs: append([]string(nil), req.ServiceIDs...),
		Date:       parsed.date,
		StartTime:  quote.Interval.Start,
		EndTime:    quote.Interval.End,
		Status:     StatusPending,
		Source:     req.Source,
		Payment: Payment{
			Amount: quote.TotalPrice,
			Method: PaymentMethodPending,
			Status: PaymentStatusPending,
		},
	}

	stored, err := s.repo.Reserve(ctx, candidate, func(slots []scheduling.TimeSlot) error {
		if slot, clash := scheduling.FirstConflict(quote.Interval, slots); clash {
			s.logger.Debug("booking conflict", "provider_id", req.ProviderID, "date", parsed.date, "requested", quote.Interval, "occupied", slot.Interval())
			return conflict(MsgSlotUnavailable)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			err = conflict(MsgSlotUnavailable)
		}
		if errors.Is(err, ErrConflict) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}

	s.record(ctx, actor, audit.Event{
		Action:     audit.ActionBookingCreated,
		BookingID:  stored.ID,
		ProviderID: stored.ProviderID,
		ToStatus:   string(stored.Status),
		ServiceIDs: stored.ServiceIDs,
	})
	s.publish(ctx, actor, events.TypeBookingCreated, stored, "")
	s.logger.Info("booking created",
		"booking_id", stored.ID,
		"provider_id", stored.ProviderID,
		"customer_id", stored.CustomerID,
		"date", stored.Date,
		"start_time", stored.StartTime,
		"end_time", stored.EndTime,
		"source", stored.Source,
	)
	return &View{Booking: stored, Services: services, Customer: customer, Provider: provider}, nil
}

// Get returns a booking with its services and parties. Party-only.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (view *View, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.get")
	defer span.End()
	defer func() { s.finish(span, err) }()
	span.SetAttributes(attribute.String("scheduler.booking_id", id))

	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAccess(actor, b); err != nil {
		return nil, err
	}
	return s.view(ctx, b)
}

func (s *Service) view(ctx context.Context, b *Booking) (*View, error) {
	v := &View{Booking: b}
	services, err := s.services.Lookup(ctx, b.ServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("bookings: resolve services: %w", err)
	}
	v.Services = services
	if p, err := s.parties.Get(ctx, b.CustomerID); err == nil {
		v.Customer = p
	}
	if p, err := s.parties.Get(ctx, b.ProviderID); err == nil {
		v.Provider = p
	}
	return v, nil
}

// List returns the caller's bookings as customer or provider.
func (s *Service) List(ctx context.Context, actor identity.Actor, filter ListFilter) (out []*Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.list")
	defer span.End()
	defer func() { s.finish(span, err) }()

	if err := actor.Validate(); err != nil {
		return nil, forbidden("caller identity is required")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Time().Before(filter.From.Time()) {
		return nil, invalid("to", "must not be before from")
	}
	filter.PartyID = actor.ID
	out, err = s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Booking{}
	}
	return out, nil
}

// UpdateStatus applies one lifecycle step. Cancelling releases the slot in
// the same transaction.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Actor, id string, requested Status) (b *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.update_status")
	defer span.End()
	defer func() { s.finish(span, err) }()
	span.SetAttributes(
		attribute.String("scheduler.booking_id", id),
		attribute.String("scheduler.to_status", string(requested)),
	)

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := current.Status
	to, err := authorizeTransition(actor, current, requested)
	defer func() {
		result := "ok"
		if err != nil {
			result = resultLabel(err)
		}
		label := string(to)
		if label == "" {
			label = "unknown"
		}
		s.metrics.ObserveTransition(string(from), label, result)
	}()
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to, to == StatusCancelled)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaleStatus):
			return nil, conflict("booking %s changed concurrently; reload and retry", id)
		case errors.Is(err, ErrBookingNotFound):
			return nil, notFound("booking", id)
		}
		return nil, err
	}

	s.record(ctx, actor, audit.Event{
		Action:     audit.ActionStatusChanged,
		BookingID:  id,
		ProviderID: updated.ProviderID,
		FromStatus: string(from),
		ToStatus:   string(to),
	})
	s.publish(ctx, actor, events.TypeBookingStatusChanged, updated, from)
	s.logger.Info("booking status changed", "booking_id", id, "from", from, "to", to, "actor_id", actor.ID, "actor_role", actor.Role)
	return updated, nil
}

// UpdatePayment sets the payment method and status. Provider only.
func (s *Service) UpdatePayment(ctx context.Context, actor identity.Actor, id string, update PaymentUpdate) (b *Booking, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.update_payment")
	defer span.End()
	defer func() { s.finish(span, err) }()
	span.SetAttributes(attribute.String("scheduler.booking_id", id))

	if err := update.Validate(); err != nil {
		return nil, err
	}
	current, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeProvider(actor, current, "update payment"); err != nil {
		return nil, err
	}

	payment := current.Payment
	payment.Method = update.Method
	payment.Status = update.Status
	switch update.Status {
	case PaymentStatusPaid:
		now := s.now().UTC()
		payment.PaidAt = &now
	case PaymentStatusPending:
		payment.PaidAt = nil
	}

	updated, err := s.repo.UpdatePayment(ctx, id, payment)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, notFound("booking", id)
		}
		return nil, err
	}

	details, _ := json.Marshal(map[string]any{"method": payment.Method, "status": payment.Status, "amount": payment.Amount})
	s.record(ctx, actor, audit.Event{
		Action:     audit.ActionPaymentUpdated,
		BookingID:  id,
		ProviderID: updated.ProviderID,
		Details:    details,
	})
	s.publish(ctx, actor, events.TypeBookingPaymentUpdated, updated, "")
	s.logger.Info("booking payment updated", "booking_id", id, "method", payment.Method, "status", payment.Status)
	return updated, nil
}

// Delete releases the paired slot, then removes the booking. Party-only.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) (err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.delete")
	defer span.End()
	defer func() { s.finish(span, err) }()
	span.SetAttributes(attribute.String("scheduler.booking_id", id))

	current, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := authorizeAccess(actor, current); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return notFound("booking", id)
		}
		return err
	}

	s.record(ctx, actor, audit.Event{
		Action:     audit.ActionBookingDeleted,
		BookingID:  id,
		ProviderID: current.ProviderID,
		FromStatus: string(current.Status),
		ServiceIDs: current.ServiceIDs,
	})
	s.publish(ctx, actor, events.TypeBookingDeleted, current, "")
	s.logger.Info("booking deleted", "booking_id", id, "actor_id", actor.ID)
	return nil
}

// Block takes an interval off the caller's own calendar.
func (s *Service) Block(ctx context.Context, actor identity.Actor, req BlockRequest) (slot scheduling.TimeSlot, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.block")
	defer span.End()
	defer func() { s.finish(span, err) }()

	if err := actor.Validate(); err != nil || !actor.IsProvider() {
		return scheduling.TimeSlot{}, forbidden("only providers may block time")
	}
	date, iv, err := req.parse()
	if err != nil {
		return scheduling.TimeSlot{}, err
	}

	slot, err = s.repo.Block(ctx, scheduling.TimeSlot{
		ProviderID: actor.ID,
		Date:       date,
		StartTime:  iv.Start,
		EndTime:    iv.End,
	}, func(slots []scheduling.TimeSlot) error {
		if scheduling.HasConflict(iv, slots) {
			return conflict(MsgSlotUnavailable)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return scheduling.TimeSlot{}, conflict(MsgSlotUnavailable)
		}
		return scheduling.TimeSlot{}, err
	}

	details, _ := json.Marshal(map[string]string{"date": date.String(), "startTime": iv.Start.String(), "endTime": iv.End.String()})
	s.record(ctx, actor, audit.Event{Action: audit.ActionSlotBlocked, SlotID: slot.ID, ProviderID: actor.ID, Details: details})
	s.logger.Info("time blocked", "provider_id", actor.ID, "date", date, "interval", iv)
	return slot, nil
}

// Unblock removes a manual block the caller owns.
func (s *Service) Unblock(ctx context.Context, actor identity.Actor, slotID string) (err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.unblock")
	defer span.End()
	defer func() { s.finish(span, err) }()

	if err := actor.Validate(); err != nil || !actor.IsProvider() {
		return forbidden("only providers may unblock time")
	}
	if err := s.repo.Unblock(ctx, actor.ID, slotID); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return notFound("blocked slot", slotID)
		}
		return err
	}
	s.record(ctx, actor, audit.Event{Action: audit.ActionSlotUnblocked, SlotID: slotID, ProviderID: actor.ID})
	s.logger.Info("time unblocked", "provider_id", actor.ID, "slot_id", slotID)
	return nil
}

// ChatAccess evaluates the chat window against the current time.
func (s *Service) ChatAccess(ctx context.Context, actor identity.Actor, id string) (access ChatAccess, err error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.chat_access")
	defer span.End()
	defer func() { s.finish(span, err) }()
	span.SetAttributes(attribute.String("scheduler.booking_id", id))

	b, err := s.load(ctx, actor, id)
	if err != nil {
		return ChatAccess{}, err
	}
	if err := authorizeAccess(actor, b); err != nil {
		return ChatAccess{}, err
	}
	window := scheduling.ChatWindowFor(b.Date, b.StartTime, s.loc)
	access = ChatAccess{
		BookingID: b.ID,
		Permitted: window.Contains(s.now()),
		OpensAt:   window.OpensAt,
		ClosesAt:  window.ClosesAt,
	}
	s.metrics.ObserveChatAccess(access.Permitted)
	return access, nil
}

// History returns the audit trail of a booking. Party-only.
func (s *Service) History(ctx context.Context, actor identity.Actor, id string) ([]audit.Event, error) {
	b, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeAccess(actor, b); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []audit.Event{}, nil
	}
	out, err := s.history.QueryEvents(ctx, audit.Filter{BookingID: id})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []audit.Event{}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, actor identity.Actor, id string) (*Booking, error) {
	if err := actor.Validate(); err != nil {
		return nil, forbidden("caller identity is required")
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, notFound("booking", id)
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) record(ctx context.Context, actor identity.Actor, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.ActorID = actor.ID
	event.ActorRole = string(actor.Role)
	if err := s.auditor.LogEvent(ctx, event); err != nil {
		s.logger.Error("failed to write audit event", "error", err, "action", event.Action, "booking_id", event.BookingID)
	}
}

func (s *Service) publish(ctx context.Context, actor identity.Actor, eventType string, b *Booking, previous Status) {
	if s.events == nil {
		return
	}
	evt := events.BookingEventV1{
		EventID:        uuid.NewString(),
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		ProviderID:     b.ProviderID,
		ServiceIDs:     b.ServiceIDs,
		Date:           b.Date.String(),
		StartTime:      b.StartTime.String(),
		EndTime:        b.EndTime.String(),
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		Source:         string(b.Source),
		PaymentAmount:  b.Payment.Amount,
		PaymentMethod:  string(b.Payment.Method),
		PaymentStatus:  string(b.Payment.Status),
		PaidAt:         b.Payment.PaidAt,
		ActorID:        actor.ID,
		ActorRole:      string(actor.Role),
		OccurredAt:     s.now().UTC(),
	}
	if _, err := s.events.Insert(ctx, b.ID, eventType, evt); err != nil {
		s.logger.Error("failed to enqueue booking event", "error", err, "type", eventType, "booking_id", b.ID)
	}
}

// finish records unexpected errors on the span. Domain rejections are
// normal outcomes and only tagged.
func (s *Service) finish(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String("scheduler.result", resultLabel(err)))
	if resultLabel(err) == "error" {
		span.RecordError(err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	}
	return "error"
}

func missingIDs(requested []string, found []scheduling.Service) []string {
	have := make(map[string]struct{}, len(found))
	for _, svc := range found {
		have[svc.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func totalDuration(services []scheduling.Service) int {
	var total int
	for _, svc := range services {
		total += svc.Duration
	}
	return total
}
