package streak

import (
	"slices"
)

// Heatmap counts accepted submissions per day.
type Heatmap map[Day]int

// Total returns the number of submissions counted.
func (h Heatmap) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Days returns the distinct days with at least one submission, most recent first.
func (h Heatmap) Days() []Day {
	days := make([]Day, 0, len(h))
	for d, c := range h {
		if c > 0 {
			days = append(days, d)
		}
	}
	slices.SortFunc(days, func(a, b Day) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	return days
}

// DayCount is one cell of a heatmap window.
type DayCount struct {
	Day   Day `json:"day"`
	Count int `json:"count"`
}

// Window returns the n days ending at last (inclusive), oldest first,
// with zero counts filled in.
func (h Heatmap) Window(last Day, n int) []DayCount {
	if n <= 0 {
		return nil
	}
	out := make([]DayCount, 0, n)
	for d := last - Day(n-1); d <= last; d++ {
		out = append(out, DayCount{Day: d, Count: h[d]})
	}
	return out
}
