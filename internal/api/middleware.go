// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/shelfplay/shelfplay/internal/config"
	"github.com/shelfplay/shelfplay/internal/logging"
	"github.com/shelfplay/shelfplay/internal/metrics"
)

// Middleware bundles the Chi middleware stack built from configuration.
type Middleware struct {
	cfg  *config.Config
	cors func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware factory.
func NewMiddleware(cfg *config.Config) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.API.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
	return &Middleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the CORS middleware built from configured origins.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns an IP-keyed rate limiter, or a no-op when disabled.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.API.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		m.cfg.API.RateLimitReqs,
		m.cfg.API.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}

// RateLimitSync returns a stricter limiter for sync triggers; each one fans
// out into multiple upstream BGG requests.
func (m *Middleware) RateLimitSync() func(http.Handler) http.Handler {
	if m.cfg.API.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(10, time.Minute)
}

// Timeout cancels request contexts after the configured server timeout.
func (m *Middleware) Timeout() func(http.Handler) http.Handler {
	return chimiddleware.Timeout(m.cfg.Server.Timeout)
}

// SyncTimeout bounds the blocking sync request. A sync can legitimately
// spend the whole retry budget waiting on BGG (queued exports plus retry
// delays plus per-request timeouts), so its bound is derived from the BGG
// client settings instead of the server timeout.
func (m *Middleware) SyncTimeout() func(http.Handler) http.Handler {
	bggCfg := m.cfg.BGG
	budget := time.Duration(bggCfg.MaxAttempts)*(bggCfg.Timeout+bggCfg.RetryDelay) + m.cfg.Server.Timeout
	return chimiddleware.Timeout(budget)
}

// RequestIDWithLogging adds a request ID to the context for response
// envelopes and structured log correlation. Wraps chi's RequestID middleware
// so the ID also lands in the X-Request-ID header.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		chiRequestID := chimiddleware.RequestID(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			chiRequestID.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Instrument records request counts and latency per route pattern.
func Instrument() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.statusCode)).Inc()
			metrics.APIRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

			logging.Ctx(r.Context()).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.statusCode).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}

// statusResponseWriter wraps http.ResponseWriter to capture the status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// SecurityHeaders adds standard security headers to API responses.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
