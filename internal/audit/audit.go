// Package audit keeps an append-only trail of booking lifecycle changes.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Action names a recorded change.
type Action string

const (
	ActionBookingCreated Action = "booking.created"
	ActionStatusChanged  Action = "booking.status_changed"
	ActionPaymentUpdated Action = "booking.payment_updated"
	ActionBookingDeleted Action = "booking.deleted"
	ActionSlotBlocked    Action = "slot.blocked"
	ActionSlotUnblocked  Action = "slot.unblocked"
)

// Event is an immutable audit record.
type Event struct {
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	BookingID  string          `json:"bookingId,omitempty"`
	SlotID     string          `json:"slotId,omitempty"`
	ProviderID string          `json:"providerId"`
	ActorID    string          `json:"actorId"`
	ActorRole  string          `json:"actorRole"`
	FromStatus string          `json:"fromStatus,omitempty"`
	ToStatus   string          `json:"toStatus,omitempty"`
	ServiceIDs []string        `json:"serviceIds,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Filter narrows QueryEvents. BookingID or ProviderID is required.
type Filter struct {
	BookingID  string
	ProviderID string
	Action     Action
	Limit      int
}

// Service writes and reads the booking_audit_events table.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	if db == nil {
		panic("audit: sql db required")
	}
	return &Service{db: db}
}

// LogEvent records one event.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	details := event.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO booking_audit_events (
			id, action, booking_id, slot_id, provider_id, actor_id, actor_role,
			from_status, to_status, service_ids, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		nullString(event.BookingID),
		nullString(event.SlotID),
		event.ProviderID,
		event.ActorID,
		event.ActorRole,
		nullString(event.FromStatus),
		nullString(event.ToStatus),
		pq.Array(event.ServiceIDs),
		[]byte(details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// QueryEvents returns matching events, oldest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, action, booking_id, slot_id, provider_id, actor_id, actor_role,
			   from_status, to_status, service_ids, details, created_at
		FROM booking_audit_events
		WHERE 1 = 1
	`
	var args []any
	if filter.BookingID != "" {
		args = append(args, filter.BookingID)
		query += fmt.Sprintf(" AND booking_id = $%d", len(args))
	}
	if filter.ProviderID != "" {
		args = append(args, filter.ProviderID)
		query += fmt.Sprintf(" AND provider_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("audit: booking or provider filter required")
	}
	query += " ORDER BY created_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e                                 Event
			action                            string
			bookingID, slotID, fromStatus, to sql.NullString
			details                           []byte
		)
		if err := rows.Scan(
			&e.ID, &action, &bookingID, &slotID, &e.ProviderID, &e.ActorID, &e.ActorRole,
			&fromStatus, &to, pq.Array(&e.ServiceIDs), &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.Action = Action(action)
		e.BookingID = bookingID.String
		e.SlotID = slotID.String
		e.FromStatus = fromStatus.String
		e.ToStatus = to.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
