package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

type fakeChecker struct{ err error }

func (f fakeChecker) Check(context.Context) error { return f.err }

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		ready      checker
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			ready:      fakeChecker{},
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			ready:      fakeChecker{},
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "readyz returns 503 when the backend is down",
			ready:      fakeChecker{err: errors.New("connection refused")},
			path:       "/readyz",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable"}`,
		},
		{
			name:       "healthz ignores the backend",
			ready:      fakeChecker{err: errors.New("connection refused")},
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(tt.ready)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestReadiness(t *testing.T) {
	down := errors.New("connection refused")
	calls := 0
	counting := checkFunc(func(context.Context) error {
		calls++
		return nil
	})

	tests := []struct {
		name    string
		checks  readiness
		wantErr error
	}{
		{"empty", readiness{}, nil},
		{"all ready", readiness{fakeChecker{}, counting}, nil},
		{"connection down", readiness{fakeChecker{}, checkFunc(func(context.Context) error { return down })}, down},
		{"store down", readiness{fakeChecker{err: down}, counting}, down},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.checks.Check(t.Context()); !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if calls != 1 {
		t.Errorf("checks after a failure should not run, got %d calls to the healthy checker", calls)
	}

	rec := httptest.NewRecorder()
	newMux(readiness{fakeChecker{}, checkFunc(func(context.Context) error { return down })}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503 when the connection is down", rec.Code)
	}
}

func TestOpenBackend_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := &config.Config{Progress: config.ProgressConfig{Backend: config.BackendFile, Dir: dir, Key: "learner"}}

	conn, err := openBackend(t.Context(), cfg)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer conn.close()
	if conn.health != nil {
		t.Error("file backend should not carry a connection health check")
	}

	b := conn.backend
	store := progress.NewStore(b, cfg.Progress.Key)
	id := "counting-to-100"
	if _, err := store.Update(t.Context(), progress.Patch{LastVisited: &id}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := progress.NewStore(b, cfg.Progress.Key).Load(t.Context()); got.LastVisited != id {
		t.Errorf("reloaded LastVisited = %q, want %q", got.LastVisited, id)
	}
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := &config.Config{Progress: config.ProgressConfig{Backend: config.BackendMemory}}
	conn, err := openBackend(t.Context(), cfg)
	if err != nil {
		t.Fatalf("openBackend() error = %v", err)
	}
	defer conn.close()
	if _, ok := conn.backend.(*progress.MemoryBackend); !ok {
		t.Errorf("backend = %T, want *progress.MemoryBackend", conn.backend)
	}
}

func TestOpenBackend_UnreachableRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}
	cfg := &config.Config{
		Progress: config.ProgressConfig{Backend: config.BackendRedis},
		Cache:    config.CacheConfig{URL: "redis://127.0.0.1:1"},
	}
	if _, err := openBackend(t.Context(), cfg); err == nil {
		t.Error("openBackend() should fail for an unreachable cache")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantDebug bool
		wantJSON  bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, false, true},
		{"text debug", config.LogConfig{Level: "debug", Format: "text"}, true, false},
		{"unknown level falls back to info", config.LogConfig{Level: "loud", Format: "json"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tt.cfg, &buf)

			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			logger.Info("progress loaded", "key", "userProgress")
			if isJSON := strings.HasPrefix(buf.String(), "{"); isJSON != tt.wantJSON {
				t.Errorf("output %q, want json=%v", buf.String(), tt.wantJSON)
			}
		})
	}
}
