package utils

import (
	"sort"
	"time"
)

// SortedDates returns the keys of a date-keyed map in ascending order.
// Weather histories are maps, so every chronological walk starts here.
func SortedDates[T any](m map[time.Time]T) []time.Time {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
