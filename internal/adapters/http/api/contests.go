// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/okian/cfpulse/internal/domain/model"
)

// Paging bounds for contest queries.
const (
	defaultStandingsCount = 100
	maxStandingsCount     = 10_000
)

// ContestDependencies defines the contest operations.
type ContestDependencies interface {
	ContestList(ctx context.Context, gym bool) (json.RawMessage, error)
	UpcomingContests(ctx context.Context) ([]model.Contest, error)
	ContestStandings(ctx context.Context, contestID, from, count int) (json.RawMessage, error)
	ContestProblems(ctx context.Context, contestID int) (json.RawMessage, error)
	ContestRows(ctx context.Context, contestID, count int) (json.RawMessage, error)
}

// ContestHandler handles /api/contests requests.
type ContestHandler struct {
	deps ContestDependencies
}

// NewContestHandler creates a new contest handler.
func NewContestHandler(deps ContestDependencies) *ContestHandler {
	return &ContestHandler{deps: deps}
}

// RegisterRoutes mounts the handler below /api/contests.
func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/upcoming", h.HandleUpcoming)
	r.Get("/{id}/standings", h.HandleStandings)
	r.Get("/{id}/problems", h.HandleProblems)
	r.Get("/{id}/rows", h.HandleRows)
}

// HandleList handles GET /api/contests?gym=bool.
func (h *ContestHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	gym := false
	if s := r.URL.Query().Get("gym"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeFailure(w, fmt.Errorf("%w: gym must be a boolean", ErrBadRequest))
			return
		}
		gym = v
	}
	raw, err := h.deps.ContestList(r.Context(), gym)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// HandleUpcoming handles GET /api/contests/upcoming.
func (h *ContestHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	contests, err := h.deps.UpcomingContests(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contests)
}

// HandleStandings handles GET /api/contests/{id}/standings?from&count.
func (h *ContestHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	id, err := contestID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	from, err := intQuery(r, "from", 1, 1, 1<<30)
	if err != nil {
		writeFailure(w, err)
		return
	}
	count, err := intQuery(r, "count", defaultStandingsCount, 1, maxStandingsCount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	raw, err := h.deps.ContestStandings(r.Context(), id, from, count)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// HandleProblems handles GET /api/contests/{id}/problems.
func (h *ContestHandler) HandleProblems(w http.ResponseWriter, r *http.Request) {
	id, err := contestID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	raw, err := h.deps.ContestProblems(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// HandleRows handles GET /api/contests/{id}/rows?count.
func (h *ContestHandler) HandleRows(w http.ResponseWriter, r *http.Request) {
	id, err := contestID(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	count, err := intQuery(r, "count", defaultStandingsCount, 1, maxStandingsCount)
	if err != nil {
		writeFailure(w, err)
		return
	}
	raw, err := h.deps.ContestRows(r.Context(), id, count)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func contestID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: contest id must be a positive integer", ErrBadRequest)
	}
	return id, nil
}
