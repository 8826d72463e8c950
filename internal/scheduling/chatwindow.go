package scheduling

import "time"

const (
	ChatOpensBefore = time.Hour
	ChatClosesAfter = 24 * time.Hour
)

// ChatWindow is the inclusive period in which the two parties of a booking
// may message each other.
type ChatWindow struct {
	OpensAt  time.Time `json:"opensAt"`
	ClosesAt time.Time `json:"closesAt"`
}

// ChatWindowFor anchors the window on the appointment's wall-clock start in loc.
func ChatWindowFor(date Date, start Clock, loc *time.Location) ChatWindow {
	appt := date.At(start, loc)
	return ChatWindow{
		OpensAt:  appt.Add(-ChatOpensBefore),
		ClosesAt: appt.Add(ChatClosesAfter),
	}
}

// Contains is inclusive at both ends.
func (w ChatWindow) Contains(now time.Time) bool {
	return !now.Before(w.OpensAt) && !now.After(w.ClosesAt)
}

// ChatPermitted evaluates the window against now. It is recomputed on every
// call and never cached.
func ChatPermitted(date Date, start Clock, now time.Time, loc *time.Location) bool {
	return ChatWindowFor(date, start, loc).Contains(now)
}
