package codeforces

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every error returned by Client matches exactly one of
// them under errors.Is.
var (
	// ErrUpstreamUnavailable covers transport failures: dial errors, timeouts,
	// cancellation, non-2xx statuses and undecodable bodies.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRejected means the upstream answered with status FAILED.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrResponseTooLarge is the cause of an UnavailableError for a body
	// over the configured limit.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrInvalidArgument is returned before any call is made.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UnavailableError carries the cause of a transport failure.
type UnavailableError struct {
	Method     string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v: http %d: %v", e.Method, ErrUpstreamUnavailable, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %v: http %d", e.Method, ErrUpstreamUnavailable, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Method, ErrUpstreamUnavailable, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Method, ErrUpstreamUnavailable)
}

// Unwrap exposes both the sentinel and the cause.
func (e *UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// RejectedError carries the comment of a FAILED response.
type RejectedError struct {
	Method  string
	Comment string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Method, ErrUpstreamRejected, e.Comment)
}

func (e *RejectedError) Unwrap() error {
	return ErrUpstreamRejected
}
