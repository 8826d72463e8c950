package bookings

import (
	"strings"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// Status is a booking's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts the four lifecycle states.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, true
	}
	return "", false
}

// Active bookings hold their time slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Source records who initiated the booking. It has no scheduling effect.
type Source string

const (
	SourceSelfService      Source = "self-service"
	SourceProviderAssisted Source = "provider-assisted"
)

func (s Source) Valid() bool {
	return s == SourceSelfService || s == SourceProviderAssisted
}

type PaymentMethod string

const (
	PaymentMethodPending PaymentMethod = "pending"
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodOnline  PaymentMethod = "online"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid || s == PaymentStatusRefunded
}

// Payment is the booking's embedded payment state. Amount is a snapshot of
// the service prices at creation.
type Payment struct {
	Amount int64         `json:"amount"`
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
	PaidAt *time.Time    `json:"paidAt,omitempty"`
}

// Booking is a reservation of one provider interval by one customer.
type Booking struct {
	ID         string           `json:"id"`
	CustomerID string           `json:"customerId"`
	ProviderID string           `json:"providerId"`
	ServiceIDs []string         `json:"serviceIds"`
	Date       scheduling.Date  `json:"date"`
	StartTime  scheduling.Clock `json:"startTime"`
	EndTime    scheduling.Clock `json:"endTime"`
	Status     Status           `json:"status"`
	Source     Source           `json:"source"`
	Payment    Payment          `json:"payment"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

func (b *Booking) Interval() scheduling.Interval {
	return scheduling.Interval{Start: b.StartTime, End: b.EndTime}
}

// IsParty reports whether id is the booking's customer or provider.
func (b *Booking) IsParty(id string) bool {
	return id != "" && (id == b.CustomerID || id == b.ProviderID)
}

// View is a booking with its services and parties resolved for display.
type View struct {
	*Booking
	Services []scheduling.Service `json:"services"`
	Customer *directory.Party     `json:"customer,omitempty"`
	Provider *directory.Party     `json:"provider,omitempty"`
}

// CreateRequest is the wire form of a booking creation.
type CreateRequest struct {
	ProviderID string   `json:"providerId"`
	CustomerID string   `json:"customerId,omitempty"`
	ServiceIDs []string `json:"serviceIds"`
	Date       string   `json:"date"`
	StartTime  string   `json:"startTime"`
	Source     Source   `json:"source,omitempty"`
}

type parsedCreate struct {
	date  scheduling.Date
	start scheduling.Clock
}

// normalize trims ids and checks required fields and formats.
func (r *CreateRequest) normalize() (parsedCreate, error) {
	var out parsedCreate
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	if r.ProviderID == "" {
		return out, invalid("providerId", "is required")
	}
	if len(r.ServiceIDs) == 0 {
		return out, invalid("serviceIds", "at least one service is required")
	}
	seen := make(map[string]struct{}, len(r.ServiceIDs))
	for i, id := range r.ServiceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return out, invalid("serviceIds", "entry %d is empty", i)
		}
		if _, dup := seen[id]; dup {
			return out, invalid("serviceIds", "service %s is listed more than once", id)
		}
		seen[id] = struct{}{}
		r.ServiceIDs[i] = id
	}
	if strings.TrimSpace(r.Date) == "" {
		return out, invalid("date", "is required")
	}
	date, err := scheduling.ParseDate(r.Date)
	if err != nil {
		return out, invalid("date", "must be YYYY-MM-DD")
	}
	if strings.TrimSpace(r.StartTime) == "" {
		return out, invalid("startTime", "is required")
	}
	start, err := scheduling.ParseClock(r.StartTime)
	if err != nil {
		return out, invalid("startTime", "must be HH:MM (24-hour)")
	}
	if r.Source != "" && !r.Source.Valid() {
		return out, invalid("source", "must be self-service or provider-assisted")
	}
	out.date, out.start = date, start
	return out, nil
}

// PaymentUpdate is the provider's payment mutation.
type PaymentUpdate struct {
	Method PaymentMethod `json:"method"`
	Status PaymentStatus `json:"status"`
}

func (u PaymentUpdate) Validate() error {
	if u.Method != PaymentMethodCash && u.Method != PaymentMethodOnline {
		return invalid("method", "must be cash or online")
	}
	if !u.Status.Valid() {
		return invalid("status", "must be pending, paid or refunded")
	}
	return nil
}

// ListFilter narrows a party's booking list.
type ListFilter struct {
	PartyID string
	Status  Status
	From    scheduling.Date
	To      scheduling.Date
}

// BlockRequest is a provider's manual block of an interval.
type BlockRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

func (r BlockRequest) parse() (scheduling.Date, scheduling.Interval, error) {
	date, err := scheduling.ParseDate(r.Date)
	if err != nil {
		return scheduling.Date{}, scheduling.Interval{}, invalid("date", "must be YYYY-MM-DD")
	}
	start, err := scheduling.ParseClock(r.StartTime)
	if err != nil {
		return scheduling.Date{}, scheduling.Interval{}, invalid("startTime", "must be HH:MM (24-hour)")
	}
	end, err := scheduling.ParseClock(r.EndTime)
	if err != nil {
		return scheduling.Date{}, scheduling.Interval{}, invalid("endTime", "must be HH:MM (24-hour)")
	}
	iv := scheduling.Interval{Start: start, End: end}
	if !iv.Valid() {
		return scheduling.Date{}, scheduling.Interval{}, invalid("endTime", "must be after startTime")
	}
	return date, iv, nil
}

// ChatAccess reports whether the parties may message right now.
type ChatAccess struct {
	BookingID string    `json:"bookingId"`
	Permitted bool      `json:"permitted"`
	OpensAt   time.Time `json:"opensAt"`
	ClosesAt  time.Time `json:"closesAt"`
}
