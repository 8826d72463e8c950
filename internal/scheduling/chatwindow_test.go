package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChatPermitted(t *testing.T) {
	date := NewDate(2024, time.May, 1)
	start := MustClock("09:00")

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"45 minutes before", time.Date(2024, 5, 1, 8, 15, 0, 0, time.UTC), true},
		{"previous evening", time.Date(2024, 4, 30, 20, 0, 0, 0, time.UTC), false},
		{"one minute before window closes", time.Date(2024, 5, 2, 8, 59, 0, 0, time.UTC), true},
		{"one minute after window closes", time.Date(2024, 5, 2, 9, 1, 0, 0, time.UTC), false},
		{"exactly one hour before", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), true},
		{"exactly 24 hours after", time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC), true},
		{"just before opening", time.Date(2024, 5, 1, 7, 59, 59, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChatPermitted(date, start, tt.now, time.UTC))
		})
	}
}

func TestChatWindowUsesScheduleLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	w := ChatWindowFor(NewDate(2024, time.May, 1), MustClock("09:00"), loc)

	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), w.OpensAt.UTC())
	assert.Equal(t, time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC), w.ClosesAt.UTC())
	assert.False(t, w.Contains(time.Date(2024, 5, 1, 8, 15, 0, 0, time.UTC)))
}
