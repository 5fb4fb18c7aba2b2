// Package api provides the HelloBible HTTP server: the profile,
// gamification and module endpoints the app screens call, plus health
// and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/domain"
	"github.com/hellobible/hellobible/internal/health"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// maxBodyBytes caps request bodies; every payload here is tiny.
const maxBodyBytes = 64 << 10

// ─── Dependencies ───────────────────────────────────────────────────────────

// Engine is the gamification surface the API exposes.
type Engine interface {
	Initialize(ctx context.Context) (domain.Snapshot, error)
	GetStats(ctx context.Context) (domain.Stats, error)
	GetLevelInfo(ctx context.Context) (domain.LevelInfo, error)
	GetAllAchievements(ctx context.Context) ([]domain.AchievementStatus, error)
	AddXP(ctx context.Context, amount int64, reason string) (domain.XPResult, error)
	CompleteLesson(ctx context.Context, quizScore int) (domain.LessonResult, error)
	CheckAchievements(ctx context.Context) ([]domain.AchievementDef, error)
	Reset(ctx context.Context) (domain.Snapshot, error)
	SyncStatus() domain.SyncStatus
}

// Progress is the lesson tracker surface the API exposes.
type Progress interface {
	CalculateModuleProgress(ctx context.Context, moduleID string) (float64, error)
	CompletedLessons(ctx context.Context, moduleID string) ([]string, error)
	NextLesson(ctx context.Context, moduleID string) (domain.Lesson, bool, error)
	Summaries(ctx context.Context) ([]domain.ModuleSummary, error)
}

// Catalog looks up static modules.
type Catalog interface {
	Lookup(id string) (domain.Module, bool)
}

// Study completes a catalog lesson in both stores.
type Study interface {
	CompleteLesson(ctx context.Context, moduleID, lessonID string, quizScore int) (study.Outcome, error)
}

// Sessions manages the signed-in identity.
type Sessions interface {
	Login(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context) error
	UserID(ctx context.Context) (string, bool)
}

// Config tunes the HTTP layer.
type Config struct {
	AllowedOrigins []string // browser origins allowed to call the API; empty allows none
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second per IP, 0 = unlimited
	RateBurst      int
	Metrics        bool
}

// ─── Server ─────────────────────────────────────────────────────────────────

// Server is the HelloBible HTTP API server.
type Server struct {
	cfg      Config
	engine   Engine
	progress Progress
	catalog  Catalog
	study    Study
	sessions Sessions // nil when sign-in is not configured
	checker  *health.Checker
	limiter  *RateLimiter
}

// NewServer creates a new API server.
func NewServer(cfg Config, engine Engine, progress Progress, catalog Catalog, study Study) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Server{
		cfg:      cfg,
		engine:   engine,
		progress: progress,
		catalog:  catalog,
		study:    study,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// SetSessions enables the /api/session endpoints.
func (s *Server) SetSessions(sess Sessions) { s.sessions = sess }

// SetHealthChecker serves checker results at /health.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// Limiter returns the per-IP limiter so the daemon can sweep it.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.originGuard)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.limiter.Middleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/", s.handleLogin)
		r.Delete("/", s.handleLogout)
	})

	r.Route("/api/gamification", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/level", s.handleLevel)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/sync", s.handleSync)
		r.Post("/xp", s.handleAddXP)
		r.Post("/lessons", s.handleCompleteLesson)
		r.Post("/achievements/check", s.handleCheckAchievements)
		r.Post("/reset", s.handleReset)
	})

	r.Route("/api/modules", func(r chi.Router) {
		r.Get("/", s.handleListModules)
		r.Get("/{moduleID}", s.handleGetModule)
		r.Post("/{moduleID}/lessons/{lessonID}/complete", s.handleCompleteModuleLesson)
	})

	// Prometheus metrics endpoint
	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// rs/cors treats an empty list as "*", so without origins there is
	// no CORS layer at all.
	if len(s.cfg.AllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}

// originGuard rejects browser requests from origins that are not
// configured. CORS alone only hides responses; simple cross-site POSTs
// would still reach the handlers.
func (s *Server) originGuard(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			next.ServeHTTP(w, r)
			return
		}
		log.Printf("[api] rejected request from origin %s", origin)
		writeError(w, http.StatusForbidden, "origin not allowed")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	statuses := s.checker.Statuses()
	if len(statuses) == 0 {
		statuses = s.checker.RunOnce(r.Context())
	}
	status, code := "ok", http.StatusOK
	if !s.checker.IsHealthy() {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": statuses,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidXPAmount),
		errors.Is(err, domain.ErrInvalidQuizScore):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrModuleNotFound),
		errors.Is(err, domain.ErrLessonNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAuthDisabled):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, domain.ErrSnapshotConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[api] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a small JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
