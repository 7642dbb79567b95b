package streak

import (
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Day is a UTC calendar date stored as whole days since 1970-01-01.
// Consecutive dates differ by exactly one.
type Day int64

// DayOf returns the UTC calendar date of t.
func DayOf(t time.Time) Day {
	return FromUnix(t.Unix())
}

// FromUnix returns the UTC calendar date of a Unix timestamp in seconds.
func FromUnix(sec int64) Day {
	d := sec / secondsPerDay
	if sec%secondsPerDay < 0 {
		d--
	}
	return Day(d)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(time.DateOnly)
}

// MarshalText renders d as YYYY-MM-DD; JSON maps keyed by Day use it.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses YYYY-MM-DD.
func (d *Day) UnmarshalText(b []byte) error {
	v, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
