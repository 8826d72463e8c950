package scheduling

import (
	"errors"
	"fmt"
)

// ErrInvalidSlotWidth is returned for widths that cannot tile a day.
var ErrInvalidSlotWidth = errors.New("scheduling: slot width must be between 1 and 1440 minutes")

// Interval is a half-open [Start, End) range of wall-clock minutes.
type Interval struct {
	Start Clock `json:"startTime"`
	End   Clock `json:"endTime"`
}

func (iv Interval) Valid() bool {
	return iv.Start.Valid() && iv.End > iv.Start && iv.End <= MinutesPerDay
}

func (iv Interval) Minutes() int { return int(iv.End - iv.Start) }

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", iv.Start, iv.End)
}

// Generator cuts working hours into fixed-width candidate slots.
type Generator struct {
	width int
}

// NewGenerator returns a generator for the given slot width in minutes.
func NewGenerator(widthMinutes int) (*Generator, error) {
	if widthMinutes <= 0 || widthMinutes > MinutesPerDay {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlotWidth, widthMinutes)
	}
	return &Generator{width: widthMinutes}, nil
}

func (g *Generator) Width() int { return g.width }

// Generate returns contiguous slots covering [open, close). A trailing
// remainder shorter than the width is dropped. Closed days and inverted
// hours produce an empty, non-nil slice.
func (g *Generator) Generate(hours DayHours) []Interval {
	slots := []Interval{}
	if !hours.IsOpen || hours.Open >= hours.Close {
		return slots
	}
	for start := hours.Open; start.Add(g.width) <= hours.Close; start = start.Add(g.width) {
		slots = append(slots, Interval{Start: start, End: start.Add(g.width)})
	}
	return slots
}

// GenerateForDate resolves the weekday entry for d and generates its slots.
func (g *Generator) GenerateForDate(d Date, week WeeklyHours) (DayHours, []Interval) {
	hours := week.ForDate(d)
	return hours, g.Generate(hours)
}
