// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/cfpulse/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler depends on the
// narrow interface it needs; the service satisfies all of them.
type Dependencies interface {
	UserDependencies
	StreakDependencies
	ContestDependencies
	ProblemDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	userHandler    *UserHandler
	streakHandler  *StreakHandler
	contestHandler *ContestHandler
	problemHandler *ProblemHandler
	metricsHandler http.Handler
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		userHandler:    NewUserHandler(deps),
		streakHandler:  NewStreakHandler(deps),
		contestHandler: NewContestHandler(deps),
		problemHandler: NewProblemHandler(deps),
		metricsHandler: NewMetricsHandler(),
		logger:         log,
	}
}

// NewRouter returns a chi router carrying the common middleware stack.
func (s *Server) NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Recoverer(s.logger))
	r.Use(MetricsMiddleware(s.logger))
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/api", func(api chi.Router) {
		api.Route("/users/{handle}", s.userHandler.RegisterRoutes)
		api.Get("/streaks", s.streakHandler.HandleCompare)
		api.Route("/contests", s.contestHandler.RegisterRoutes)
		api.Route("/problems", s.problemHandler.RegisterRoutes)
		api.Get("/problemset/recent", s.problemHandler.HandleRecent)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
}

// Handler builds a router and registers every route on it.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := s.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an upstream payload as is.
func writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err through statusFromError.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFromError(err)
	writeError(w, status, code, err)
}

// intQuery reads an integer query parameter, falling back to def when absent
// and rejecting values outside [lo, hi].
func intQuery(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%w: %s must be an integer in [%d, %d]", ErrBadRequest, name, lo, hi)
	}
	return n, nil
}

// listQuery splits a comma separated query parameter, dropping blanks.
func listQuery(r *http.Request, name string) []string {
	var out []string
	for _, v := range strings.Split(r.URL.Query().Get(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
