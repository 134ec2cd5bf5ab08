package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/meow-bot-auth/config"
	"github.com/onnwee/meow-bot-auth/joinlist"
	"github.com/onnwee/meow-bot-auth/telemetry"
)

// NewMux returns the HTTP handler with all routes.
// The provided context is used for rate limiter cleanup goroutines lifecycle.
func NewMux(ctx context.Context, cfg *config.Config, store joinlist.Store) http.Handler {
	return NewMuxWithHandlers(ctx, cfg, NewHandlers(cfg, store))
}

// NewMuxWithHandlers is NewMux for callers that already built handlers, sharing their app
// token cache.
func NewMuxWithHandlers(ctx context.Context, cfg *config.Config, handlers *Handlers) http.Handler {
	authCfg := newAuthConfig(cfg)
	corsCfg := newCORSConfig(cfg)
	rateLimiter := newIPRateLimiter(ctx, newRateLimiterConfig(cfg))

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/authorize-bot", rateLimitMiddleware(http.HandlerFunc(handlers.HandleAuthorizeBot), rateLimiter))
	mux.HandleFunc("GET /api/auth-url", handlers.HandleAuthURL)

	mux.HandleFunc("GET /api/health", handlers.HandleHealth)
	mux.HandleFunc("GET /api/readyz", handlers.HandleReadyz)

	// Auth first, then rate limiting
	mux.Handle("GET /api/admin/channels", adminAuth(rateLimitMiddleware(http.HandlerFunc(handlers.HandleAdminChannels), rateLimiter), authCfg))

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPURLAttr(r.URL.String()),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		req := r.WithContext(ctx)
		mux.ServeHTTP(wrappedWriter, req)

		// The mux records the matched pattern on the request it served.
		if req.Pattern != "" {
			span.SetAttributes(telemetry.HTTPRouteAttr(req.Pattern))
		}
		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			code, msg := telemetry.ErrorStatus(fmt.Sprintf("HTTP %d", wrappedWriter.statusCode))
			span.SetStatus(code, msg)
		}
	})
	return withCORSConfig(handler, corsCfg)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
