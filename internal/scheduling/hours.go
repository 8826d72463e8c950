package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidHours is returned when an open day does not close after it opens.
var ErrInvalidHours = errors.New("scheduling: open must be before close")

// DayHours is the working-hours entry for a single weekday.
type DayHours struct {
	Open   Clock `json:"open"`
	Close  Clock `json:"close"`
	IsOpen bool  `json:"isOpen"`
}

// DefaultDayHours applies to any weekday without an explicit entry.
var DefaultDayHours = DayHours{Open: 9 * 60, Close: 17 * 60, IsOpen: true}

// Validate enforces open < close on open days. Closed days are not checked.
func (h DayHours) Validate() error {
	if !h.IsOpen {
		return nil
	}
	if !h.Open.Valid() || !h.Close.Valid() || h.Open >= h.Close {
		return fmt.Errorf("%w: %s-%s", ErrInvalidHours, h.Open, h.Close)
	}
	return nil
}

// Contains reports whether [start, end) lies inside working hours.
func (h DayHours) Contains(iv Interval) bool {
	return h.IsOpen && iv.Start >= h.Open && iv.End <= h.Close
}

// WeeklyHours is a provider's working-hours calendar keyed by weekday.
type WeeklyHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

func (w *WeeklyHours) entry(weekday time.Weekday) **DayHours {
	switch weekday {
	case time.Sunday:
		return &w.Sunday
	case time.Monday:
		return &w.Monday
	case time.Tuesday:
		return &w.Tuesday
	case time.Wednesday:
		return &w.Wednesday
	case time.Thursday:
		return &w.Thursday
	case time.Friday:
		return &w.Friday
	default:
		return &w.Saturday
	}
}

// ForDay resolves a weekday, falling back to DefaultDayHours when unset.
func (w WeeklyHours) ForDay(weekday time.Weekday) DayHours {
	if h := *w.entry(weekday); h != nil {
		return *h
	}
	return DefaultDayHours
}

// ForDate resolves the hours that apply on a calendar date.
func (w WeeklyHours) ForDate(d Date) DayHours {
	return w.ForDay(d.Weekday())
}

// Set replaces a single weekday entry.
func (w *WeeklyHours) Set(weekday time.Weekday, h DayHours) {
	*w.entry(weekday) = &h
}

// Validate checks every explicit entry and names the first bad weekday.
func (w WeeklyHours) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		h := *w.entry(day)
		if h == nil {
			continue
		}
		if err := h.Validate(); err != nil {
			return fmt.Errorf("%s: %w", weekdayKey(day), err)
		}
	}
	return nil
}

func weekdayKey(day time.Weekday) string {
	switch day {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	default:
		return "saturday"
	}
}
