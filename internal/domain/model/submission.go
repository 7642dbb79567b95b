// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// VerdictOK marks an accepted submission.
const VerdictOK = "OK"

// Submission is one entry of a user.status or problemset.recentStatus payload.
// Only Verdict and CreationTimeSeconds are relied upon. A decoded Submission
// marshals back to the exact upstream object, fields not listed here included.
type Submission struct {
	ID                  int64           `json:"id"`
	ContestID           int64           `json:"contestId,omitempty"`
	CreationTimeSeconds int64           `json:"creationTimeSeconds"`
	Verdict             string          `json:"verdict,omitempty"`
	ProgrammingLanguage string          `json:"programmingLanguage,omitempty"`
	Problem             json.RawMessage `json:"problem,omitempty"`

	raw json.RawMessage
}

type submissionFields Submission

// UnmarshalJSON decodes the known fields and keeps the whole object.
func (s *Submission) UnmarshalJSON(b []byte) error {
	var f submissionFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Submission(f)
	s.raw = bytes.Clone(b)
	return nil
}

// MarshalJSON returns the upstream object when there is one.
func (s Submission) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(submissionFields(s))
}

// Accepted reports whether the submission was judged OK.
func (s Submission) Accepted() bool {
	return s.Verdict == VerdictOK
}

// CreatedAt returns the creation time in UTC.
func (s Submission) CreatedAt() time.Time {
	return time.Unix(s.CreationTimeSeconds, 0).UTC()
}
