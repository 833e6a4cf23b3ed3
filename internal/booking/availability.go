package booking

import (
	"slices"
)

// FreeSlots returns the parts of window not covered by busy, in order.
// busy may be unsorted, overlapping, or extend past the window.
func FreeSlots(window Interval, busy []Interval) []Interval {
	if window.Validate() != nil {
		return nil
	}

	sorted := slices.Clone(busy)
	slices.SortFunc(sorted, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})

	var free []Interval
	cursor := window.Start
	for _, b := range sorted {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(window.End) {
			break
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
		if !cursor.Before(window.End) {
			return free
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}
