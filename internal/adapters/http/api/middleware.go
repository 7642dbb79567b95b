// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/okian/cfpulse/pkg/logger"
	"github.com/okian/cfpulse/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
	statusBadGateway      = 502
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID reuses an incoming X-Request-ID or assigns a new uuid, exposes it
// on the response and stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the id stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Recoverer turns a handler panic into a 500 response.
func Recoverer(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error(r.Context(), "handler panic",
						logger.String("request_id", RequestIDFrom(r.Context())),
						logger.String("path", r.URL.Path),
						logger.Any("panic", rec),
					)
					writeError(w, http.StatusInternalServerError, codeInternal, nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsMiddleware records Prometheus metrics per route pattern and logs
// each request at debug level.
func MetricsMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response writer wrapper to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			endpoint := routePattern(r)
			duration := time.Since(start)
			durationMs := float64(duration.Milliseconds())
			statusCodeStr := strconv.Itoa(wrapped.statusCode)

			metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
			metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

			if wrapped.statusCode >= statusBadRequest {
				metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(wrapped.statusCode))
			}

			log.Debug(r.Context(), "http request",
				logger.String("request_id", RequestIDFrom(r.Context())),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("route", endpoint),
				logger.Int("status", wrapped.statusCode),
				logger.Duration("duration", duration),
			)
		})
	}
}

// routePattern returns the matched chi pattern, so path parameters do not
// explode metric cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusBadGateway:
		return "upstream_error"
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
