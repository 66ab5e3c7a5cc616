package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/player"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	reg, err := content.Load(cfg.Content.Path)
	if err != nil {
		return err
	}

	conn, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.close()

	store := progress.NewStore(conn.backend, cfg.Progress.Key)
	store.Load(ctx)

	ready := readiness{store}
	if conn.health != nil {
		ready = append(ready, conn.health)
	}

	learn := player.NewServer(player.Config{
		Catalog:        reg,
		Progress:       store,
		OriginPatterns: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      newMux(ready, learn),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "progress_backend", cfg.Progress.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// backendConn is an opened progress backend. health is nil for backends that
// live in the process or on local disk.
type backendConn struct {
	backend progress.Backend
	health  checker
	close   func()
}

// openBackend connects the configured progress backend.
func openBackend(ctx context.Context, cfg *config.Config) (*backendConn, error) {
	nop := func() {}

	switch cfg.Progress.Backend {
	case config.BackendMemory:
		slog.Warn("progress is kept in memory and lost on restart")
		return &backendConn{backend: progress.NewMemoryBackend(), close: nop}, nil

	case config.BackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		b, err := progress.NewRedisBackend(c.Client)
		if err != nil {
			c.Close()
			return nil, err
		}
		return &backendConn{
			backend: b,
			health:  checkFunc(c.HealthCheck),
			close:   func() { _ = c.Close() },
		}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if cfg.Progress.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		b, err := progress.NewPostgresBackend(db.Pool)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &backendConn{backend: b, health: checkFunc(db.HealthCheck), close: db.Close}, nil

	default:
		b, err := progress.NewFileBackend(cfg.Progress.Dir)
		if err != nil {
			return nil, err
		}
		return &backendConn{backend: b, close: nop}, nil
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// checker reports whether a dependency is ready to serve.
type checker interface {
	Check(ctx context.Context) error
}

// checkFunc adapts a HealthCheck method to a checker.
type checkFunc func(ctx context.Context) error

func (f checkFunc) Check(ctx context.Context) error { return f(ctx) }

// readiness reports the first failing checker.
type readiness []checker

func (r readiness) Check(ctx context.Context) error {
	for _, c := range r {
		if err := c.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// router adds its routes to a mux.
type router interface {
	Register(mux *http.ServeMux)
}

// newMux creates the HTTP router with health check endpoints.
func newMux(ready checker, routes ...router) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(ready))
	for _, r := range routes {
		r.Register(mux)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(ready checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready.Check(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
