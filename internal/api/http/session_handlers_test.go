package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	auth "github.com/ujianhub/ujianhub/internal/auth/middleware"
	"github.com/ujianhub/ujianhub/internal/question"
	"github.com/ujianhub/ujianhub/internal/rbac"
	"github.com/ujianhub/ujianhub/internal/session"
)

// identity stamps the request context the way JWTMiddleware and
// AttachProfileFromDB would, without a real token.
func identity(sub, role, tier string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			ctx = auth.WithTier(ctx, tier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T, sub, role, tier string) (*chi.Mux, *session.Service) {
	t.Helper()
	repo := question.NewInMemoryRepo()
	for i := 0; i < 30; i++ {
		if err := repo.Put(context.Background(), question.Question{
			ID:           fmt.Sprintf("n%02d", i),
			TestType:     question.TestPOLRI,
			Subject:      "numerik",
			Prompt:       "soal",
			Choices:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Explanation:  "pembahasan",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := session.NewService(session.NewInMemoryStore(), repo, nil, session.Config{}, time.Now)

	r := chi.NewRouter()
	r.Use(identity(sub, role, tier))
	r.Post("/api/sessions", CreateSessionHandler(svc))
	r.Post("/api/sessions/{sessionID}/start", StartSessionHandler(svc))
	r.Post("/api/sessions/{sessionID}/submit", SubmitSessionHandler(svc))
	r.Get("/api/sessions", ListSessionsHandler(svc))
	r.Get("/api/sessions/{sessionID}", GetSessionHandler(svc))
	r.Get("/api/sessions/{sessionID}/result", SessionResultHandler(svc))
	r.Delete("/api/sessions/{sessionID}", DeleteSessionHandler(svc))
	r.Get("/api/catalog/{testType}/subjects", SubjectCatalogHandler())
	return r, svc
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionFlowOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, "u1", "user", "basic")

	rec := doJSON(t, r, "POST", "/api/sessions", map[string]any{
		"test_type":      "polri",
		"subjects":       []string{"numerik"},
		"question_count": 4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: %d body=%s", rec.Code, rec.Body)
	}
	var created struct {
		Session   session.Session `json:"session"`
		Questions []question.View `json:"questions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if len(created.Questions) != 4 {
		t.Fatalf("question views: %d", len(created.Questions))
	}
	id := created.Session.ID

	rec = doJSON(t, r, "POST", "/api/sessions/"+id+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status: %d body=%s", rec.Code, rec.Body)
	}

	answers := map[string]any{"answers": []map[string]any{
		{"question_id": created.Session.QuestionIDs[0], "selected": 1},
		{"question_id": created.Session.QuestionIDs[1], "selected": 0},
	}}
	rec = doJSON(t, r, "POST", "/api/sessions/"+id+"/submit", answers)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status: %d body=%s", rec.Code, rec.Body)
	}
	var rep session.GradeReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.CorrectCount != 1 || rep.ScorePercent != 25.00 {
		t.Fatalf("report: %+v", rep.Report)
	}

	// Duplicate submit maps to 409 with a stable kind.
	rec = doJSON(t, r, "POST", "/api/sessions/"+id+"/submit", answers)
	if rec.Code != http.StatusConflict {
		t.Fatalf("resubmit status: %d", rec.Code)
	}
	var e struct {
		Error errBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Error.Kind != string(session.KindAlreadySubmitted) {
		t.Fatalf("error kind: %s", e.Error.Kind)
	}

	// Basic tier sees explanations in the result.
	rec = doJSON(t, r, "GET", "/api/sessions/"+id+"/result", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("result status: %d body=%s", rec.Code, rec.Body)
	}
	var res session.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.Questions) != 4 || res.Questions[0].Explanation == "" {
		t.Fatalf("result review: %+v", res.Questions)
	}

	rec = doJSON(t, r, "GET", "/api/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: %d", rec.Code)
	}

	rec = doJSON(t, r, "DELETE", "/api/sessions/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status: %d", rec.Code)
	}
	rec = doJSON(t, r, "GET", "/api/sessions/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status: %d", rec.Code)
	}
}

func TestAdmissionErrorsOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t, "u1", "user", "free")

	// Over the free cap: 422 carrying the limit.
	rec := doJSON(t, r, "POST", "/api/sessions", map[string]any{
		"test_type":      "polri",
		"subjects":       []string{"numerik"},
		"question_count": 25,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("over-cap status: %d body=%s", rec.Code, rec.Body)
	}
	var e struct {
		Error errBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Error.Kind != string(session.KindQuestionCountExceeded) || e.Error.Limit != 20 {
		t.Fatalf("error body: %+v", e.Error)
	}

	// Simulation on free: 422.
	rec = doJSON(t, r, "POST", "/api/sessions", map[string]any{
		"test_type":      "polri",
		"question_count": 10,
		"mode":           "simulation",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("simulation status: %d", rec.Code)
	}
}

func TestOwnershipOverHTTP(t *testing.T) {
	r, svc := newTestRouter(t, "intruder", "user", "free")

	sess, _, err := svc.Create(context.Background(), "owner", "free", session.CreateInput{
		TestType:      question.TestPOLRI,
		Subjects:      []string{"numerik"},
		QuestionCount: 4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec := doJSON(t, r, "POST", "/api/sessions/"+sess.ID+"/start", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign start status: %d", rec.Code)
	}
}

func TestSubjectCatalogEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, "u1", "user", "free")

	rec := doJSON(t, r, "GET", "/api/catalog/cpns/subjects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog status: %d", rec.Code)
	}
	var body struct {
		Subjects []string `json:"subjects"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(body.Subjects) != 3 {
		t.Fatalf("cpns subjects: %v", body.Subjects)
	}

	rec = doJSON(t, r, "GET", "/api/catalog/toefl/subjects", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown track status: %d", rec.Code)
	}
}
