package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
)

// rateLimit limits requests per client IP with go-chi/httprate and answers
// rejected requests with an enveloped RATE_LIMITED error.
func rateLimit(requests int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues("http").Inc()
			logger.Warn("Rate limit exceeded",
				"ip", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeError(w, http.StatusTooManyRequests, &APIError{
				Code:    string(domainerrors.CodeRateLimited),
				Message: "Too many requests. Please try again later.",
			})
		}),
	)
}

// writeError writes an error envelope for middleware that runs outside huma.
func writeError(w http.ResponseWriter, status int, apiErr *APIError) {
	body, _ := EnvelopeTransformer(nil, strconv.Itoa(status), apiErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestMetrics records request count and latency per route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, route, status, time.Since(start))
	})
}

// requestLogger logs one line per request at a level chosen by status.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			level := slog.LevelDebug
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelInfo
			}
			logger.Log(r.Context(), level, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
