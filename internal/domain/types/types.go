// Package types contains common types used across the application
package types

// HandleStreak is one row of a streak comparison between handles.
// Rank is 0 for rows that carry an error.
type HandleStreak struct {
	Rank          int    `json:"rank"`
	Handle        string `json:"handle"`
	CurrentStreak int    `json:"current_streak"`
	MaxStreak     int    `json:"max_streak"`
	ActiveDays    int    `json:"active_days"`
	Solved        int    `json:"solved"`
	Error         string `json:"error,omitempty"`
}

// OK reports whether the row was computed successfully.
func (h HandleStreak) OK() bool {
	return h.Error == ""
}

// Less orders rows by current streak desc, then max streak desc, then
// handle asc. Failed rows sort after successful ones.
func (h HandleStreak) Less(o HandleStreak) bool {
	if h.OK() != o.OK() {
		return h.OK()
	}
	if h.CurrentStreak != o.CurrentStreak {
		return h.CurrentStreak > o.CurrentStreak
	}
	if h.MaxStreak != o.MaxStreak {
		return h.MaxStreak > o.MaxStreak
	}
	return h.Handle < o.Handle
}
