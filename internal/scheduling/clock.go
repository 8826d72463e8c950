// Package scheduling holds the pure scheduling rules: working hours, slot
// generation, availability merging, pricing, conflict detection and the chat
// window. Nothing in this package performs I/O.
package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay bounds every Clock value.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock = errors.New("scheduling: time must be HH:MM (24-hour)")
	ErrInvalidDate  = errors.New("scheduling: date must be YYYY-MM-DD")
)

// Clock is a wall-clock time of day in minutes since midnight. It is written
// as zero-padded HH:MM wherever it leaves the process.
type Clock int

// ParseClock parses a strict HH:MM value in the range 00:00-23:59.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	hh, ok1 := twoDigits(s[0], s[1])
	mm, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || hh > 23 || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return Clock(hh*60 + mm), nil
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Valid reports whether c is a time within a single day.
func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

// Add returns c shifted by the given number of minutes. The result may fall
// outside the day; callers check Valid.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidClock, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// Time returns midnight UTC of the day, suitable for a SQL date column.
func (d Date) Time() time.Time { return d.t }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// At combines the day with a wall-clock time in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := d.t.Date()
	return time.Date(y, m, day, int(c)/60, int(c)%60, 0, 0, loc)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
