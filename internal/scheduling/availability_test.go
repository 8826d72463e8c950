package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func iv(start, end string) Interval {
	return Interval{Start: MustClock(start), End: MustClock(end)}
}

func TestMergeExactMatches(t *testing.T) {
	g := mustGenerator(t, 30)
	candidates := g.Generate(DayHours{Open: MustClock("09:00"), Close: MustClock("11:00"), IsOpen: true})

	persisted := []TimeSlot{
		{StartTime: MustClock("09:00"), EndTime: MustClock("09:30"), IsAvailable: false, BookingID: strPtr("b-1")},
		{StartTime: MustClock("09:30"), EndTime: MustClock("10:00"), IsAvailable: true, IsBlocked: true},
		{StartTime: MustClock("10:00"), EndTime: MustClock("10:30"), IsAvailable: true},
	}
	snapshot := append([]TimeSlot(nil), persisted...)

	views := Merge(candidates, persisted)
	require.Len(t, views, 4)

	assert.False(t, views[0].IsAvailable)
	require.NotNil(t, views[0].BookingID)
	assert.Equal(t, "b-1", *views[0].BookingID)

	assert.False(t, views[1].IsAvailable)
	assert.True(t, views[1].IsBlocked)

	assert.True(t, views[2].IsAvailable, "released slot is bookable again")
	assert.Nil(t, views[2].BookingID)

	assert.True(t, views[3].IsAvailable)
	assert.False(t, views[3].IsBlocked)
	assert.Nil(t, views[3].BookingID)

	assert.Equal(t, snapshot, persisted, "merge must not mutate persisted slots")
	*views[0].BookingID = "changed"
	assert.Equal(t, "b-1", *persisted[0].BookingID)
}

func TestMergeMarksCandidatesCoveredByLongerBooking(t *testing.T) {
	g := mustGenerator(t, 30)
	candidates := g.Generate(DayHours{Open: MustClock("09:00"), Close: MustClock("11:00"), IsOpen: true})

	persisted := []TimeSlot{
		{StartTime: MustClock("09:00"), EndTime: MustClock("10:15"), IsAvailable: false, BookingID: strPtr("b-long")},
		{StartTime: MustClock("10:00"), EndTime: MustClock("10:30"), IsAvailable: true},
	}
	views := Merge(candidates, persisted)

	for i := 0; i < 3; i++ {
		assert.False(t, views[i].IsAvailable, "slot %s", views[i].StartTime)
		require.NotNil(t, views[i].BookingID)
		assert.Equal(t, "b-long", *views[i].BookingID)
	}
	assert.True(t, views[3].IsAvailable)
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, []TimeSlot{{StartTime: MustClock("09:00"), EndTime: MustClock("09:30")}}))

	views := Merge([]Interval{iv("09:00", "09:30")}, nil)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsAvailable)
}
