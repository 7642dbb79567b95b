package model

import (
	"bytes"
	"encoding/json"
)

// Contest phases reported by contest.list.
const (
	PhaseBefore   = "BEFORE"
	PhaseCoding   = "CODING"
	PhaseFinished = "FINISHED"
)

// Contest holds the contest.list fields the service filters and sorts on.
// Like Submission, a decoded Contest marshals back to the upstream object.
type Contest struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type,omitempty"`
	Phase               string `json:"phase"`
	Frozen              bool   `json:"frozen"`
	DurationSeconds     int64  `json:"durationSeconds"`
	StartTimeSeconds    int64  `json:"startTimeSeconds,omitempty"`
	RelativeTimeSeconds int64  `json:"relativeTimeSeconds,omitempty"`

	raw json.RawMessage
}

type contestFields Contest

// UnmarshalJSON decodes the known fields and keeps the whole object.
func (c *Contest) UnmarshalJSON(b []byte) error {
	var f contestFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = Contest(f)
	c.raw = bytes.Clone(b)
	return nil
}

// MarshalJSON returns the upstream object when there is one.
func (c Contest) MarshalJSON() ([]byte, error) {
	if len(c.raw) > 0 {
		return c.raw, nil
	}
	return json.Marshal(contestFields(c))
}

// Upcoming reports whether the contest has not started yet.
func (c Contest) Upcoming() bool {
	return c.Phase == PhaseBefore
}
