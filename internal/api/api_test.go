package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hellobible/hellobible/internal/app/gamification"
	"github.com/hellobible/hellobible/internal/app/lessons"
	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/domain"
	"github.com/hellobible/hellobible/internal/health"
	"github.com/hellobible/hellobible/internal/infra/catalog"
	"github.com/hellobible/hellobible/internal/infra/identity"
	"github.com/hellobible/hellobible/internal/infra/sqlite"
)

var testSecret = []byte("api-test-secret-with-at-least-32-characters")

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cat := catalog.Default()
	sess := identity.NewSession(db, testSecret, "")
	engine := gamification.New(db, sess, gamification.WithLocation(time.UTC))
	if _, err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	tracker := lessons.New(db, cat)

	srv := NewServer(cfg, engine, tracker, cat, study.NewService(tracker, engine))
	srv.SetSessions(sess)
	srv.SetHealthChecker(health.NewChecker(db, dir, nil))
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

// ─── Health / Version ───────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	w := do(t, h, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestAPI_Version(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	w := do(t, h, "GET", "/api/version", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := decode[map[string]string](t, w); body["version"] != Version {
		t.Errorf("version = %q", body["version"])
	}
}

// ─── Gamification ───────────────────────────────────────────────────────────

func TestAPI_CompleteLessonAndStats(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	w := do(t, h, "POST", "/api/gamification/lessons", `{"quiz_score": 100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	res := decode[domain.LessonResult](t, w)
	if res.XPGained != 75 || res.FinalTotalXP != 125 {
		t.Errorf("result = %+v", res)
	}

	stats := decode[domain.Stats](t, do(t, h, "GET", "/api/gamification/stats", ""))
	if stats.TotalXP != 125 || stats.LessonsCompleted != 1 || stats.Achievements != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Sync.State != domain.SyncLocalOnly {
		t.Errorf("sync = %s, want local_only", stats.Sync.State)
	}
}

func TestAPI_AddXP_Validation(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	if w := do(t, h, "POST", "/api/gamification/xp", `{"amount": 0, "reason": "x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("zero amount status = %d, want 400", w.Code)
	}
	if w := do(t, h, "POST", "/api/gamification/xp", `{"amount": "lots"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", w.Code)
	}
	if w := do(t, h, "POST", "/api/gamification/lessons", `{"quiz_score": 101}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad score status = %d, want 400", w.Code)
	}

	w := do(t, h, "POST", "/api/gamification/xp", `{"amount": 250, "reason": "bonus"}`)
	res := decode[domain.XPResult](t, w)
	if !res.LeveledUp || res.NewLevel != 2 {
		t.Errorf("result = %+v, want level up to 2", res)
	}

	info := decode[domain.LevelInfo](t, do(t, h, "GET", "/api/gamification/level", ""))
	if info.CurrentLevel != 2 || info.Title != "Aprendiz" {
		t.Errorf("level info = %+v", info)
	}
}

func TestAPI_AchievementsAndReset(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()
	do(t, h, "POST", "/api/gamification/lessons", `{"quiz_score": 0}`)

	body := decode[struct {
		Achievements []domain.AchievementStatus `json:"achievements"`
	}](t, do(t, h, "GET", "/api/gamification/achievements", ""))
	if len(body.Achievements) != 6 {
		t.Fatalf("achievements = %d, want 6", len(body.Achievements))
	}
	if !body.Achievements[0].Unlocked {
		t.Error("first_lesson should be unlocked")
	}

	w := do(t, h, "POST", "/api/gamification/reset", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d", w.Code)
	}
	stats := decode[domain.Stats](t, do(t, h, "GET", "/api/gamification/stats", ""))
	if stats.TotalXP != 0 || stats.Achievements != 0 {
		t.Errorf("stats after reset = %+v", stats)
	}
}

// ─── Modules ────────────────────────────────────────────────────────────────

func TestAPI_Modules(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	list := decode[struct {
		Modules []domain.ModuleSummary `json:"modules"`
	}](t, do(t, h, "GET", "/api/modules", ""))
	if len(list.Modules) == 0 {
		t.Fatal("no modules listed")
	}

	w := do(t, h, "POST", "/api/modules/fundamentos-da-fe/lessons/criacao/complete", `{"quiz_score": 100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", w.Code, w.Body.String())
	}
	out := decode[study.Outcome](t, w)
	if !out.LessonRecorded || out.ModuleProgress != 0.25 || out.Gamification == nil {
		t.Errorf("outcome = %+v", out)
	}

	mod := decode[moduleResponse](t, do(t, h, "GET", "/api/modules/fundamentos-da-fe", ""))
	if mod.Progress != 0.25 || len(mod.Completed) != 1 {
		t.Errorf("module = %+v", mod)
	}
	if mod.NextLesson == nil || mod.NextLesson.ID != "queda" {
		t.Errorf("next lesson = %+v, want queda", mod.NextLesson)
	}
}

func TestAPI_Modules_NotFound(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	if w := do(t, h, "GET", "/api/modules/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown module status = %d, want 404", w.Code)
	}
	if w := do(t, h, "POST", "/api/modules/salmos/lessons/nope/complete", `{"quiz_score": 0}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown lesson status = %d, want 404", w.Code)
	}
}

// ─── Session ────────────────────────────────────────────────────────────────

func TestAPI_SessionLoginLogout(t *testing.T) {
	h := newTestServer(t, Config{}).Handler()

	if w := do(t, h, "POST", "/api/session", `{"access_token": "garbage"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}

	userID := uuid.NewString()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, h, "POST", "/api/session", `{"access_token": "`+token+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}

	sess := decode[sessionResponse](t, do(t, h, "GET", "/api/session", ""))
	if !sess.Authenticated || sess.UserID != userID {
		t.Errorf("session = %+v", sess)
	}

	do(t, h, "DELETE", "/api/session", "")
	sess = decode[sessionResponse](t, do(t, h, "GET", "/api/session", ""))
	if sess.Authenticated {
		t.Error("still authenticated after logout")
	}
}

// ─── Middleware ─────────────────────────────────────────────────────────────

func TestAPI_RateLimited(t *testing.T) {
	h := newTestServer(t, Config{RateLimit: 1, RateBurst: 2}).Handler()

	codes := make([]int, 4)
	for i := range codes {
		codes[i] = do(t, h, "GET", "/api/version", "").Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("burst should pass, got %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want 429 after burst", codes)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := NewRateLimiter(5, 10)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(5 * time.Minute)
	l.allow("10.0.0.2")

	if n := l.Sweep(3 * time.Minute); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if l.Visitors() != 1 {
		t.Errorf("Visitors() = %d, want 1", l.Visitors())
	}
}

func TestAPI_CORS(t *testing.T) {
	h := newTestServer(t, Config{AllowedOrigins: []string{"https://app.hellobible.com"}}).Handler()

	req := httptest.NewRequest("GET", "/api/version", nil)
	req.Header.Set("Origin", "https://app.hellobible.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.hellobible.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestAPI_CrossOriginDeniedByDefault(t *testing.T) {
	srv := newTestServer(t, Config{})
	h := srv.Handler()
	do(t, h, "POST", "/api/gamification/xp", `{"amount": 300, "reason": "seed"}`)

	for _, path := range []string{"/api/gamification/reset", "/api/gamification/xp", "/api/session"} {
		req := httptest.NewRequest("POST", path, strings.NewReader(`{"amount": 5}`))
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("POST %s from foreign origin = %d, want 403", path, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("POST %s Allow-Origin = %q, want none", path, got)
		}
	}

	stats := decode[domain.Stats](t, do(t, h, "GET", "/api/gamification/stats", ""))
	if stats.TotalXP != 300 {
		t.Errorf("TotalXP = %d, want 300 (foreign requests must not mutate)", stats.TotalXP)
	}
}

func TestAPI_ConfiguredOriginMayMutate(t *testing.T) {
	h := newTestServer(t, Config{AllowedOrigins: []string{"https://app.hellobible.com"}}).Handler()

	req := httptest.NewRequest("POST", "/api/gamification/xp", strings.NewReader(`{"amount": 10, "reason": "app"}`))
	req.Header.Set("Origin", "https://app.hellobible.com")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("POST", "/api/gamification/reset", nil)
	req.Header.Set("Origin", "https://other.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("unlisted origin status = %d, want 403", w.Code)
	}
}

func TestAPI_Metrics(t *testing.T) {
	h := newTestServer(t, Config{Metrics: true}).Handler()
	do(t, h, "POST", "/api/gamification/lessons", `{"quiz_score": 0}`)

	w := do(t, h, "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hellobible_lessons_completed_total") {
		t.Error("metrics output missing lessons counter")
	}
}
