// Package streak derives calendar engagement metrics from submission history.
//
// Days are UTC calendar dates. Only accepted submissions count. Everything
// here is pure: no I/O, no shared state.
package streak

import (
	"time"

	"github.com/okian/cfpulse/internal/domain/model"
)

// Result is the outcome of a streak computation.
type Result struct {
	CurrentStreak int     `json:"current_streak"`
	MaxStreak     int     `json:"max_streak"`
	Heatmap       Heatmap `json:"heatmap"`

	// Skipped counts accepted submissions dropped for an unusable timestamp.
	Skipped int `json:"-"`
}

// Compute builds the heatmap and both streaks for records as of now.
// Input order and duplicates do not matter.
func Compute(records []model.Submission, now time.Time) Result {
	res := Result{Heatmap: make(Heatmap)}
	for _, r := range records {
		if !r.Accepted() {
			continue
		}
		// Zero or negative timestamps are malformed.
		if r.CreationTimeSeconds <= 0 {
			res.Skipped++
			continue
		}
		res.Heatmap[FromUnix(r.CreationTimeSeconds)]++
	}

	days := res.Heatmap.Days()
	res.CurrentStreak = Current(days, DayOf(now))
	res.MaxStreak = Longest(days)
	return res
}

// Current returns the length of the run at the head of days (sorted
// descending, distinct) provided that run reaches today or yesterday.
func Current(days []Day, today Day) int {
	if len(days) == 0 {
		return 0
	}
	if days[0] != today && days[0] != today-1 {
		return 0
	}
	n := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] != 1 {
			break
		}
		n++
	}
	return n
}

// Longest returns the longest run of consecutive days in days (sorted
// descending, distinct).
func Longest(days []Day) int {
	best, run := 0, 0
	for i := range days {
		run++
		if i+1 == len(days) || days[i]-days[i+1] > 1 {
			best = max(best, run)
			run = 0
		}
	}
	return best
}
