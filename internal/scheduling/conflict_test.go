package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapsTouchingBoundaries(t *testing.T) {
	assert.False(t, iv("10:00", "10:30").Overlaps(iv("10:30", "11:00")))
	assert.False(t, iv("10:30", "11:00").Overlaps(iv("10:00", "10:30")))
	assert.True(t, iv("10:00", "10:31").Overlaps(iv("10:30", "11:00")))
	assert.True(t, iv("09:00", "12:00").Overlaps(iv("10:00", "10:30")))
	assert.True(t, iv("10:00", "10:30").Overlaps(iv("10:00", "10:30")))
}

func TestOverlapsIsSymmetric(t *testing.T) {
	var intervals []Interval
	for start := Clock(0); start < 6*60; start += 25 {
		for _, length := range []int{5, 30, 55, 120} {
			intervals = append(intervals, Interval{Start: start, End: start.Add(length)})
		}
	}
	for _, a := range intervals {
		for _, b := range intervals {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("asymmetric overlap for %s and %s", a, b)
			}
		}
	}
}

func TestHasConflictOnlyConsidersOccupiedSlots(t *testing.T) {
	slots := []TimeSlot{
		{StartTime: MustClock("09:00"), EndTime: MustClock("09:30"), IsAvailable: true},
		{StartTime: MustClock("10:00"), EndTime: MustClock("10:30"), IsAvailable: false, BookingID: strPtr("b-1")},
		{StartTime: MustClock("12:00"), EndTime: MustClock("13:00"), IsAvailable: true, IsBlocked: true},
	}

	assert.False(t, HasConflict(iv("09:00", "09:30"), slots), "released slot is free")
	assert.False(t, HasConflict(iv("09:30", "10:00"), slots))
	assert.True(t, HasConflict(iv("09:45", "10:15"), slots))
	assert.True(t, HasConflict(iv("12:30", "12:45"), slots), "blocked slot conflicts")
	assert.False(t, HasConflict(iv("10:30", "12:00"), slots))

	hit, ok := FirstConflict(iv("10:15", "10:45"), slots)
	assert.True(t, ok)
	assert.Equal(t, "b-1", *hit.BookingID)
}
