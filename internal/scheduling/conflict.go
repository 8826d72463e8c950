package scheduling

// Overlaps is the half-open overlap test. Intervals that only touch at a
// boundary do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// FirstConflict returns the first occupied slot overlapping proposed.
// Released slots are ignored.
func FirstConflict(proposed Interval, slots []TimeSlot) (TimeSlot, bool) {
	for _, slot := range slots {
		if !slot.Occupied() {
			continue
		}
		if proposed.Overlaps(slot.Interval()) {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// HasConflict reports whether proposed overlaps any occupied slot.
func HasConflict(proposed Interval, slots []TimeSlot) bool {
	_, found := FirstConflict(proposed, slots)
	return found
}
