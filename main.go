// Command meow-bot-auth is the authorization backend for the Meow chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Refuses to start when TWITCH_CLIENT_SECRET is missing.
//   - Opens the channel join list (text file, or Postgres when JOIN_LIST_BACKEND=postgres).
//   - Probes the Twitch app credentials once, best effort.
//   - Serves /api/authorize-bot, /api/health, /api/readyz, /api/auth-url,
//     /api/admin/channels and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/meow-bot-auth/config"
	"github.com/onnwee/meow-bot-auth/db"
	"github.com/onnwee/meow-bot-auth/joinlist"
	"github.com/onnwee/meow-bot-auth/server"
	"github.com/onnwee/meow-bot-auth/telemetry"
)

const (
	serviceName    = "meow-bot-auth"
	serviceVersion = "1.0.0"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

// setupLogging configures the default logger from LOG_LEVEL and LOG_FORMAT. Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// run wires the service and blocks until ctx is canceled. Configuration errors are returned
// before any listener is bound.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	telemetry.Init()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.OTelEndpoint,
		SampleRatio:    cfg.OTelSampleRatio,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("tracing initialization failed: %w", err)
	}
	defer shutdownTracing()

	backend, err := openJoinList(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	handlers := server.NewHandlers(cfg, backend.store)
	if backend.schemaCheck != nil {
		handlers.WithSchemaCheck(backend.schemaCheck)
	}

	// Best-effort: a client-credentials grant confirms the id/secret pair before traffic arrives.
	probeCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	if tok, err := handlers.AppTokenSource().Get(probeCtx); err != nil {
		slog.Warn("twitch app token fetch failed", slog.Any("err", err))
	} else if len(tok) > 6 {
		slog.Info("twitch app token acquired", slog.String("tail", "***"+tok[len(tok)-6:]))
	}
	cancel()

	if os.Getenv("ENABLE_PPROF") == "1" {
		startPprof(os.Getenv("PPROF_ADDR"))
	}

	slog.Info("starting meow-bot-auth",
		slog.String("addr", cfg.ListenAddr()),
		slog.String("join_list_backend", cfg.JoinListBackend),
		slog.String("bot_username", cfg.BotUsername),
	)
	return server.Start(ctx, cfg.ListenAddr(), server.NewMuxWithHandlers(ctx, cfg, handlers))
}

// joinListBackend is the opened join list plus what the server needs around it.
type joinListBackend struct {
	store       joinlist.Store
	schemaCheck func(context.Context) error
	close       func()
}

// openJoinList opens the configured join list backend. The Postgres backend is migrated first
// and reports its schema state to readiness.
func openJoinList(ctx context.Context, cfg *config.Config) (*joinListBackend, error) {
	switch cfg.JoinListBackend {
	case config.BackendPostgres:
		database, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		return &joinListBackend{
			store: joinlist.NewPostgresStore(database),
			schemaCheck: func(ctx context.Context) error {
				return db.CheckSchema(ctx, database)
			},
			close: func() {
				if err := database.Close(); err != nil {
					slog.Error("failed to close database", slog.Any("err", err))
				}
			},
		}, nil
	default:
		slog.Info("using file join list", slog.String("path", cfg.JoinListPath))
		return &joinListBackend{
			store: joinlist.NewFileStore(cfg.JoinListPath),
			close: func() {},
		}, nil
	}
}

func startPprof(addr string) {
	if addr == "" {
		addr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", addr))
		srv := &http.Server{
			Addr:              addr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
