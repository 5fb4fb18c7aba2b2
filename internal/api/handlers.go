package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/domain"
)

// ─── Session ────────────────────────────────────────────────────────────────

type loginRequest struct {
	AccessToken string `json:"access_token"`
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	UserID        string            `json:"user_id,omitempty"`
	Sync          domain.SyncStatus `json:"sync"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{Sync: s.engine.SyncStatus()}
	if s.sessions != nil {
		resp.UserID, resp.Authenticated = s.sessions.UserID(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin stores the token and re-initializes the engine so the
// signed-in storage policy takes effect.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeDomainError(w, domain.ErrAuthDisabled)
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, err := s.sessions.Login(r.Context(), req.AccessToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := s.engine.Initialize(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	log.Printf("[api] signed in %s", userID)
	writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, UserID: userID, Sync: s.engine.SyncStatus()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeDomainError(w, domain.ErrAuthDisabled)
		return
	}
	if err := s.sessions.Logout(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := s.engine.Initialize(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Sync: s.engine.SyncStatus()})
}

// ─── Gamification ───────────────────────────────────────────────────────────

type addXPRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type lessonRequest struct {
	QuizScore int `json:"quiz_score"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.GetStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.GetLevelInfo(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	all, err := s.engine.GetAllAchievements(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": all})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.SyncStatus())
}

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req addXPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.AddXP(r.Context(), req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.CompleteLesson(r.Context(), req.QuizScore)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.engine.CheckAchievements(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_achievements": unlocked})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Reset(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ─── Modules ────────────────────────────────────────────────────────────────

type moduleResponse struct {
	domain.Module
	Completed  []string       `json:"completed_lesson_ids"`
	Progress   float64        `json:"progress"`
	NextLesson *domain.Lesson `json:"next_lesson,omitempty"`
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	sums, err := s.progress.Summaries(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": sums})
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "moduleID")
	m, ok := s.catalog.Lookup(id)
	if !ok {
		writeDomainError(w, domain.ErrModuleNotFound)
		return
	}
	ctx := r.Context()

	completed, err := s.progress.CompletedLessons(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	progress, err := s.progress.CalculateModuleProgress(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := moduleResponse{Module: m, Completed: completed, Progress: progress}
	if next, ok, err := s.progress.NextLesson(ctx, id); err != nil {
		writeDomainError(w, err)
		return
	} else if ok {
		resp.NextLesson = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteModuleLesson(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.study.CompleteLesson(r.Context(), chi.URLParam(r, "moduleID"), chi.URLParam(r, "lessonID"), req.QuizScore)
	var pf *study.PartialFailure
	if errors.As(err, &pf) {
		log.Printf("[api] %v", pf)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{
				"message":         pf.Error(),
				"type":            "partial_failure",
				"step":            pf.Step,
				"lesson_recorded": pf.LessonRecorded,
			},
			"outcome": out,
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
