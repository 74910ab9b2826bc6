package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/master"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/repository"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/service"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/store"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"
	"github.com/Ashwin-Arumugam/Tamil-nlp/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	masterTab := table.New("incorrect", "id", "corrected")
	for _, v := range models.AllVariants() {
		masterTab.Rows = append(masterTab.Rows, []string{"naan palli ponen", string(v), "fix by " + string(v)})
	}
	mem.Seed("master", masterTab)

	sessions, err := repository.NewSessionRepository(filepath.Join(t.TempDir(), "sessions.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionRepository: %v", err)
	}
	t.Cleanup(func() { sessions.Close() })

	rater := service.NewRater(service.Config{
		Store:        mem,
		MasterLoader: master.NewLoader(mem, "master", time.Hour, zap.NewNop()),
		Sessions:     sessions,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Logger:       zap.NewNop(),
	})

	router := gin.New()
	NewHandler(rater, zap.NewNop()).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, user string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/login", gin.H{"username": user})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var sess models.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.ID
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("accepts any name", func(t *testing.T) {
		if id := login(t, router, "alice"); id == "" {
			t.Error("login returned empty session id")
		}
	})

	t.Run("rejects missing username", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/login", gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestCurrentEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id+"/current", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var view models.SentenceView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Incorrect != "naan palli ponen" || len(view.Variants) != 6 {
		t.Errorf("view = %+v", view)
	}
	if view.Total != 1 {
		t.Errorf("total = %d, want 1", view.Total)
	}
}

func TestCurrentUnknownSession(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSaveRatingsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	body := gin.H{"ratings": gin.H{"A": 7, "B": 9}, "correction": "naan pallikku ponen"}
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/ratings", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var report models.SaveReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Saved != 3 || report.Failed != 0 {
		t.Errorf("report = %+v, want 3 tables saved (2 ratings + correction)", report)
	}
}

func TestSaveRatingsBoundary(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	for _, bad := range []int{0, 11} {
		body := gin.H{"ratings": gin.H{"A": bad}}
		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/sessions/%s/ratings", id), body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("rating %d: status = %d, want 400 from binding", bad, w.Code)
		}
	}
}

func TestNavigatePastEndSignalsComplete(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", gin.H{"action": "next"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Complete bool `json:"complete"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Complete {
		t.Error("navigating past the single sentence did not report complete")
	}

	cur := doJSON(t, router, http.MethodGet, "/api/v1/sessions/"+id+"/current", nil)
	if cur.Code != http.StatusOK || !strings.Contains(cur.Body.String(), "complete") {
		t.Errorf("current past end: status %d body %s", cur.Code, cur.Body.String())
	}
}

func TestSuggestWithoutProvider(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/suggest", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when no provider is configured", w.Code)
	}
}

func TestExportCSV(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	body := gin.H{"ratings": gin.H{"A": 7}}
	if w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/ratings", body); w.Code != http.StatusOK {
		t.Fatalf("save: status = %d", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/export/A/csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	first := strings.SplitN(w.Body.String(), "\n", 2)[0]
	if !strings.Contains(first, "set_token") || !strings.Contains(first, "rating") {
		t.Errorf("csv header = %q", first)
	}
	if !strings.Contains(w.Body.String(), "alice") {
		t.Error("csv missing the saved row")
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	body := gin.H{"ratings": gin.H{"B": 8}}
	if w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/ratings", body); w.Code != http.StatusOK {
		t.Fatalf("save: status = %d", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/leaderboard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Leaderboard []models.LeaderboardRow `json:"leaderboard"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Leaderboard) != 1 || resp.Leaderboard[0].User != "alice" || resp.Leaderboard[0].Count != 1 {
		t.Errorf("leaderboard = %+v", resp.Leaderboard)
	}
}

func TestSaveAfterCompleteConflict(t *testing.T) {
	router := newTestRouter(t)
	id := login(t, router, "alice")

	// single-sentence fixture: next puts the session in the complete state
	w := doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/navigate", gin.H{"action": "next"})
	if w.Code != http.StatusOK {
		t.Fatalf("navigate status = %d, body %s", w.Code, w.Body.String())
	}

	body := gin.H{"ratings": gin.H{"A": 7}}
	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/"+id+"/ratings", body)
	if w.Code != http.StatusConflict {
		t.Errorf("save on complete session: status = %d, want 409, body %s", w.Code, w.Body.String())
	}
}

func TestLoginWhitespaceUsername(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/login", gin.H{"username": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for whitespace-only username", w.Code)
	}
}
