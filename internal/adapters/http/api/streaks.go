// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/cfpulse/internal/domain/types"
)

// StreakDependencies defines the batch streak operation.
type StreakDependencies interface {
	CompareStreaks(ctx context.Context, handles []string) ([]types.HandleStreak, error)
}

// StreakHandler handles streak comparisons.
type StreakHandler struct {
	deps StreakDependencies
}

// NewStreakHandler creates a new streak handler.
func NewStreakHandler(deps StreakDependencies) *StreakHandler {
	return &StreakHandler{deps: deps}
}

// HandleCompare handles GET /api/streaks?handles=a,b,c.
func (h *StreakHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.CompareStreaks(r.Context(), listQuery(r, "handles"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
