package http

import (
	"context"
	"log/slog"
	"net/http"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// MetricsCollector instruments requests and exposes the scrape endpoint.
type MetricsCollector interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
	RateLimited(route string)
}

type RouterConfig struct {
	Auth         *AuthHandler
	Bookings     *BookingHandler
	Sessions     SessionValidator
	LoginLimiter *RateLimiter
	Health       HealthChecker
	Metrics      MetricsCollector
	Logger       *slog.Logger
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	requireSession := func(h http.HandlerFunc) http.Handler { return h }
	optionalSession := requireSession
	if cfg.Sessions != nil {
		require := RequireSession(cfg.Sessions, logger)
		optional := OptionalSession(cfg.Sessions, logger)
		requireSession = func(h http.HandlerFunc) http.Handler { return require(h) }
		optionalSession = func(h http.HandlerFunc) http.Handler { return optional(h) }
	}

	if cfg.Auth != nil {
		var login http.Handler = http.HandlerFunc(cfg.Auth.Login)
		if cfg.LoginLimiter != nil {
			var onLimited func(string)
			if cfg.Metrics != nil {
				onLimited = cfg.Metrics.RateLimited
			}
			login = cfg.LoginLimiter.Middleware(logger, onLimited)(login)
		}
		mux.Handle("POST /login", login)
		mux.HandleFunc("POST /logout", cfg.Auth.Logout)
		mux.Handle("POST /sessions/refresh", requireSession(cfg.Auth.Refresh))
		mux.Handle("GET /sessions", requireSession(cfg.Auth.ListSessions))
		mux.Handle("DELETE /users/{id}/sessions", requireSession(cfg.Auth.RevokeUserSessions))
	}

	if cfg.Bookings != nil {
		mux.Handle("POST /bookings", optionalSession(cfg.Bookings.Create))
		mux.Handle("POST /bookings/update", requireSession(cfg.Bookings.Update))
		mux.Handle("GET /bookings", requireSession(cfg.Bookings.List))
		mux.Handle("GET /bookings/{id}", requireSession(cfg.Bookings.Get))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	})

	// The metrics middleware wraps the mux directly: the mux records the matched
	// pattern on the request it receives, so no middleware may copy it in between.
	var handler http.Handler = mux
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
		handler = cfg.Metrics.Middleware(mux)
	}

	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
