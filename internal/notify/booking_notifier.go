package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// PartyLookup resolves the contact details of a booking party.
type PartyLookup interface {
	Get(ctx context.Context, id string) (*directory.Party, error)
}

// BookingNotifier emails both parties about booking events. It is an outbox
// delivery handler.
type BookingNotifier struct {
	email   EmailSender
	parties PartyLookup
	logger  *logging.Logger
}

func NewBookingNotifier(email EmailSender, parties PartyLookup, logger *logging.Logger) *BookingNotifier {
	if email == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingNotifier{email: email, parties: parties, logger: logger}
}

// Handle implements events.DeliveryHandler.
func (n *BookingNotifier) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var evt events.BookingEventV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return fmt.Errorf("notify: decode %s: %w", entry.Type, err)
	}

	subject, body, ok := compose(entry.Type, evt)
	if !ok {
		n.logger.Debug("notify: no email for event type", "type", entry.Type)
		return nil
	}

	var errs []error
	for _, id := range recipients(entry.Type, evt) {
		party := n.lookup(ctx, id)
		if party == nil || party.Email == "" {
			n.logger.Debug("notify: party has no email, skipping", "party_id", id, "booking_id", evt.BookingID)
			continue
		}
		msg := EmailMessage{
			To: party.Email, ToName: party.Name, Subject: subject, Body: body,
			BookingID: evt.BookingID, EventID: entry.ID.String(), EventType: entry.Type,
		}
		if err := n.email.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *BookingNotifier) lookup(ctx context.Context, id string) *directory.Party {
	if n.parties == nil || id == "" {
		return nil
	}
	party, err := n.parties.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, directory.ErrPartyNotFound) {
			n.logger.Warn("notify: party lookup failed", "error", err, "party_id", id)
		}
		return nil
	}
	return party
}

// recipients skips the party that caused the event when the other side
// is the one who needs to know.
func recipients(eventType string, evt events.BookingEventV1) []string {
	switch eventType {
	case events.TypeBookingPaymentUpdated:
		return []string{evt.CustomerID}
	case events.TypeBookingStatusChanged:
		if evt.ActorID == evt.CustomerID {
			return []string{evt.ProviderID}
		}
		return []string{evt.CustomerID}
	default:
		return []string{evt.CustomerID, evt.ProviderID}
	}
}

func compose(eventType string, evt events.BookingEventV1) (string, string, bool) {
	when := fmt.Sprintf("%s at %s", evt.Date, evt.StartTime)
	switch eventType {
	case events.TypeBookingCreated:
		return "Appointment requested for " + when,
			fmt.Sprintf("A booking for %s until %s was created and is %s.", when, evt.EndTime, evt.Status), true
	case events.TypeBookingStatusChanged:
		return fmt.Sprintf("Appointment %s", evt.Status),
			fmt.Sprintf("The appointment on %s changed from %s to %s.", when, evt.PreviousStatus, evt.Status), true
	case events.TypeBookingPaymentUpdated:
		if evt.PaymentStatus == "pending" {
			return "", "", false
		}
		return fmt.Sprintf("Payment %s", evt.PaymentStatus),
			fmt.Sprintf("Payment of %s for the appointment on %s is %s (%s).", formatAmount(evt.PaymentAmount), when, evt.PaymentStatus, evt.PaymentMethod), true
	case events.TypeBookingDeleted:
		return "Appointment removed",
			fmt.Sprintf("The appointment on %s was removed from the calendar.", when), true
	}
	return "", "", false
}

func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
