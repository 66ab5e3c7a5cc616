// Package player serves the curriculum views over HTTP and drives lesson and
// exercise sessions over a WebSocket.
package player

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-learn/internal/access"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/report"
	"github.com/p-n-ai/pai-learn/internal/session"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Catalog is the content the player reads from.
type Catalog interface {
	content.Source
	Curriculum() content.Curriculum
	Grade(id string) (content.Grade, bool)
	Topic(id string) (content.Grade, content.Topic, bool)
	TopicOf(lessonID string) (string, bool)
	ExercisesForLesson(lessonID string) []string
}

// Config holds dependencies for the player.
type Config struct {
	Catalog  Catalog
	Progress session.Recorder
	Now      func() time.Time // defaults to time.Now
	// OriginPatterns lists extra hosts allowed to open a session socket.
	OriginPatterns []string
}

// Server handles the player routes.
type Server struct {
	catalog        Catalog
	progress       session.Recorder
	now            func() time.Time
	originPatterns []string
}

// NewServer creates a player server.
func NewServer(cfg Config) *Server {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		catalog:        cfg.Catalog,
		progress:       cfg.Progress,
		now:            now,
		originPatterns: cfg.OriginPatterns,
	}
}

// Register adds the player routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/curriculum", s.handleCurriculum)
	mux.HandleFunc("GET /api/grades/{id}", s.handleGrade)
	mux.HandleFunc("GET /api/topics/{id}", s.handleTopic)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/progress/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /ws", s.handleSession)
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, access.BuildOverview(s.catalog.Curriculum(), s.progress.Snapshot()))
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	g, ok := s.catalog.Grade(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, access.BuildGradeView(g, s.progress.Snapshot()))
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	g, t, ok := s.catalog.Topic(r.PathValue("id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, access.BuildTopicView(g, t, s.progress.Snapshot(), s.catalog.ExercisesForLesson))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	if err := report.WriteXLSX(w, s.catalog.Curriculum(), s.progress.Snapshot(), s.catalog.ExercisesForLesson); err != nil {
		slog.Error("progress export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: errNotFound})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
