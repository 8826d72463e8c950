package events

import "time"

// Booking event types written to the outbox.
const (
	TypeBookingCreated        = "booking.created.v1"
	TypeBookingStatusChanged  = "booking.status_changed.v1"
	TypeBookingPaymentUpdated = "booking.payment_updated.v1"
	TypeBookingDeleted        = "booking.deleted.v1"
)

// BookingEventV1 is the payload shared by every booking event type.
type BookingEventV1 struct {
	EventID        string     `json:"event_id"`
	BookingID      string     `json:"booking_id"`
	CustomerID     string     `json:"customer_id"`
	ProviderID     string     `json:"provider_id"`
	ServiceIDs     []string   `json:"service_ids"`
	Date           string     `json:"date"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	Status         string     `json:"status"`
	PreviousStatus string     `json:"previous_status,omitempty"`
	Source         string     `json:"source,omitempty"`
	PaymentAmount  int64      `json:"payment_amount"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	PaymentStatus  string     `json:"payment_status,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	ActorID        string     `json:"actor_id"`
	ActorRole      string     `json:"actor_role"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
