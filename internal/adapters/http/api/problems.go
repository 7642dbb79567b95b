// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Bounds for problemset.recentStatus.
const (
	defaultRecentCount = 50
	maxRecentCount     = 1000
)

// ProblemDependencies defines the problemset operations.
type ProblemDependencies interface {
	Problems(ctx context.Context, tags []string) (json.RawMessage, error)
	RecentStatus(ctx context.Context, count int) (json.RawMessage, error)
}

// ProblemHandler handles problemset requests.
type ProblemHandler struct {
	deps ProblemDependencies
}

// NewProblemHandler creates a new problem handler.
func NewProblemHandler(deps ProblemDependencies) *ProblemHandler {
	return &ProblemHandler{deps: deps}
}

// RegisterRoutes mounts the handler below /api/problems.
func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleProblems)
}

// HandleProblems handles GET /api/problems?tags=a,b.
func (h *ProblemHandler) HandleProblems(w http.ResponseWriter, r *http.Request) {
	raw, err := h.deps.Problems(r.Context(), listQuery(r, "tags"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// HandleRecent handles GET /api/problemset/recent?count=N.
func (h *ProblemHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	count, err := intQuery(r, "count", defaultRecentCount, 1, maxRecentCount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	raw, err := h.deps.RecentStatus(r.Context(), count)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}
