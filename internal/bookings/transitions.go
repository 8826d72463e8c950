package bookings

import "github.com/wolfman30/appointment-scheduler/internal/identity"

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
// Terminal states have no outgoing steps.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type party int

const (
	partyNone party = iota
	partyCustomer
	partyProvider
)

// partyOf resolves the actor's side of the booking from the booking itself.
// A provider who books another provider acts as that booking's customer.
func partyOf(actor identity.Actor, b *Booking) party {
	switch {
	case actor.ID == "":
		return partyNone
	case actor.ID == b.ProviderID && actor.IsProvider():
		return partyProvider
	case actor.ID == b.CustomerID:
		return partyCustomer
	default:
		return partyNone
	}
}

func authorizeAccess(actor identity.Actor, b *Booking) error {
	if partyOf(actor, b) == partyNone {
		return forbidden("caller is not a party to booking %s", b.ID)
	}
	return nil
}

// authorizeTransition applies the role rules before the state rules so a
// customer asking for anything but cancellation is always forbidden, even
// when the requested status is not a status at all. It returns the
// normalized target status.
func authorizeTransition(actor identity.Actor, b *Booking, requested Status) (Status, error) {
	to, valid := ParseStatus(string(requested))
	switch partyOf(actor, b) {
	case partyNone:
		return "", forbidden("caller is not a party to booking %s", b.ID)
	case partyCustomer:
		if to != StatusCancelled {
			return "", forbidden("customers may only cancel bookings")
		}
	}
	if !valid {
		return "", invalid("status", "must be pending, confirmed, cancelled or completed")
	}
	if !CanTransition(b.Status, to) {
		return to, conflict("cannot change booking status from %s to %s", b.Status, to)
	}
	return to, nil
}

func authorizeProvider(actor identity.Actor, b *Booking, action string) error {
	switch partyOf(actor, b) {
	case partyNone:
		return forbidden("caller is not a party to booking %s", b.ID)
	case partyCustomer:
		return forbidden("only the provider may %s", action)
	}
	return nil
}
