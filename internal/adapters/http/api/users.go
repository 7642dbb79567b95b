// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/okian/cfpulse/internal/domain/model"
	"github.com/okian/cfpulse/internal/domain/streak"
)

// UserDependencies defines the per-handle operations.
type UserDependencies interface {
	UserInfo(ctx context.Context, handle string) (json.RawMessage, error)
	UserRating(ctx context.Context, handle string) (json.RawMessage, error)
	UserBlogs(ctx context.Context, handle string) (json.RawMessage, error)
	FetchSubmissions(ctx context.Context, handle string) ([]model.Submission, error)
	ComputeStreak(ctx context.Context, handle string) (streak.Result, error)
}

// UserHandler handles /api/users/{handle} requests.
type UserHandler struct {
	deps UserDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// RegisterRoutes mounts the handler below /api/users/{handle}.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleInfo)
	r.Get("/submissions", h.HandleSubmissions)
	r.Get("/streak", h.HandleStreak)
	r.Get("/rating", h.raw(h.deps.UserRating))
	r.Get("/blogs", h.raw(h.deps.UserBlogs))
}

// HandleInfo handles GET /api/users/{handle}.
func (h *UserHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	h.raw(h.deps.UserInfo)(w, r)
}

// HandleSubmissions handles GET /api/users/{handle}/submissions.
func (h *UserHandler) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.deps.FetchSubmissions(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

type streakResponse struct {
	Handle string `json:"handle"`
	streak.Result
}

// HandleStreak handles GET /api/users/{handle}/streak.
func (h *UserHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(chi.URLParam(r, "handle"))
	res, err := h.deps.ComputeStreak(r.Context(), handle)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streakResponse{Handle: handle, Result: res})
}

func (h *UserHandler) raw(fetch func(context.Context, string) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := fetch(r.Context(), chi.URLParam(r, "handle"))
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeRaw(w, http.StatusOK, raw)
	}
}
