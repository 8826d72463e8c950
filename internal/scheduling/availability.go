package scheduling

// TimeSlot is a persisted interval on a provider's calendar, either reserved
// by a booking or manually blocked.
type TimeSlot struct {
	ID          string  `json:"id"`
	ProviderID  string  `json:"providerId"`
	Date        Date    `json:"date"`
	StartTime   Clock   `json:"startTime"`
	EndTime     Clock   `json:"endTime"`
	IsAvailable bool    `json:"isAvailable"`
	IsBlocked   bool    `json:"isBlocked"`
	BookingID   *string `json:"bookingId"`
}

func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// Occupied reports whether the slot takes its interval out of availability.
func (s TimeSlot) Occupied() bool {
	return s.IsBlocked || !s.IsAvailable
}

// Released reports whether the slot is a leftover from a cancelled booking.
func (s TimeSlot) Released() bool {
	return s.IsAvailable && !s.IsBlocked && s.BookingID == nil
}

// SlotView is one row of an availability response.
type SlotView struct {
	StartTime   Clock   `json:"startTime"`
	EndTime     Clock   `json:"endTime"`
	IsAvailable bool    `json:"isAvailable"`
	IsBlocked   bool    `json:"isBlocked"`
	BookingID   *string `json:"bookingId"`
}

// Availability is the merged view of a provider's day.
type Availability struct {
	ProviderID   string     `json:"providerId"`
	Date         Date       `json:"date"`
	WorkingHours DayHours   `json:"workingHours"`
	SlotWidth    int        `json:"slotWidthMinutes"`
	Slots        []SlotView `json:"slots"`
}

// Merge overlays persisted slots onto generated candidates without touching
// either input.
//
// A candidate with an exact start/end match takes isAvailable, isBlocked and
// bookingId from that record. A candidate that is still free but overlaps an
// occupied record of a different length (a multi-service booking, or a block
// spanning several slots) is reported unavailable with that record's state.
func Merge(candidates []Interval, persisted []TimeSlot) []SlotView {
	exact := make(map[Interval]TimeSlot, len(persisted))
	var occupied []TimeSlot
	for _, slot := range persisted {
		iv := slot.Interval()
		if prev, ok := exact[iv]; !ok || (!prev.Occupied() && slot.Occupied()) {
			exact[iv] = slot
		}
		if slot.Occupied() {
			occupied = append(occupied, slot)
		}
	}

	views := make([]SlotView, 0, len(candidates))
	for _, c := range candidates {
		view := SlotView{StartTime: c.Start, EndTime: c.End, IsAvailable: true}
		if rec, ok := exact[c]; ok {
			view.IsAvailable = rec.IsAvailable && !rec.IsBlocked
			view.IsBlocked = rec.IsBlocked
			view.BookingID = copyID(rec.BookingID)
		}
		if view.IsAvailable {
			if rec, ok := FirstConflict(c, occupied); ok {
				view.IsAvailable = false
				view.IsBlocked = rec.IsBlocked
				view.BookingID = copyID(rec.BookingID)
			}
		}
		views = append(views, view)
	}
	return views
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
