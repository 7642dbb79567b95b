package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cfpulse/internal/adapters/codeforces"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error codes returned in the response body.
const (
	codeBadRequest          = "bad_request"
	codeNotFound            = "not_found"
	codeUpstreamRejected    = "upstream_rejected"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamTimeout     = "upstream_timeout"
	codeInternal            = "internal_error"
)

// statusFromError maps an error to an HTTP status and response code.
func statusFromError(err error) (int, string) {
	var rejected *codeforces.RejectedError
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, codeforces.ErrInvalidArgument):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.As(err, &rejected):
		if strings.Contains(strings.ToLower(rejected.Comment), "not found") {
			return http.StatusNotFound, codeNotFound
		}
		return http.StatusBadRequest, codeUpstreamRejected
	case errors.Is(err, codeforces.ErrUpstreamRejected):
		return http.StatusBadRequest, codeUpstreamRejected
	case errors.Is(err, codeforces.ErrUpstreamUnavailable):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, codeUpstreamTimeout
		}
		return http.StatusBadGateway, codeUpstreamUnavailable
	}
	return http.StatusInternalServerError, codeInternal
}
