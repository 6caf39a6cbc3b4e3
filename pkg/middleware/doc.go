// Package middleware provides net/http middleware for the registry server.
//
// This package includes:
//   - Prometheus request metrics
//   - OpenTelemetry distributed tracing
//   - slog request logging
//   - Per-client rate limiting
//
// All middleware has the func(http.Handler) http.Handler shape and works
// with chi's Use. Route labels come from the chi route pattern.
//
// # Prometheus Metrics
//
//	metrics := middleware.NewMetrics()
//	r.Use(metrics.Middleware)
//	r.Handle("/metrics", metrics.Handler())
//
// # OpenTelemetry Middleware
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("registry"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// Handlers inherit the span through r.Context(), so database drivers and
// HTTP clients called with that context join the trace.
//
// # Rate Limiting
//
//	r.Use(chimw.RealIP)
//	r.Use(middleware.RateLimit(50, 100))
package middleware
