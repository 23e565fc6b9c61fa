package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auth "github.com/ujianhub/ujianhub/internal/auth/middleware"
	"github.com/ujianhub/ujianhub/internal/question"
	"github.com/ujianhub/ujianhub/internal/rbac"
	"github.com/ujianhub/ujianhub/internal/session"
	"github.com/ujianhub/ujianhub/internal/tier"
)

func callerTier(r *http.Request) tier.Tier {
	return tier.Tier(auth.TierFromContext(r.Context()))
}

// POST /api/sessions
func CreateSessionHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in session.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		sess, views, err := svc.Create(r.Context(), userID, callerTier(r), in)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session":   sess,
			"questions": views,
		})
	}
}

// POST /api/sessions/{sessionID}/start
func StartSessionHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		userID := auth.SubjectFromContext(r.Context())
		sess, err := svc.Start(r.Context(), id, userID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session":           sess,
			"remaining_seconds": svc.RemainingSeconds(sess),
		})
	}
}

// POST /api/sessions/{sessionID}/submit
func SubmitSessionHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var req struct {
			Answers []session.Answer `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		rep, err := svc.Submit(r.Context(), id, userID, req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// GET /api/sessions/{sessionID}
func GetSessionHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		ctx := r.Context()
		sess, views, err := svc.Get(ctx, id, auth.SubjectFromContext(ctx), rbac.RoleFromContext(ctx))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session":           sess,
			"questions":         views,
			"remaining_seconds": svc.RemainingSeconds(sess),
		})
	}
}

// GET /api/sessions/{sessionID}/result
func SessionResultHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		ctx := r.Context()
		res, err := svc.Result(ctx, id,
			auth.SubjectFromContext(ctx), rbac.RoleFromContext(ctx), callerTier(r))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// DELETE /api/sessions/{sessionID}
func DeleteSessionHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		ctx := r.Context()
		if err := svc.Delete(ctx, id, auth.SubjectFromContext(ctx), rbac.RoleFromContext(ctx)); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/sessions?limit=&offset=
func ListSessionsHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		sums, err := svc.List(r.Context(), auth.SubjectFromContext(r.Context()), limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		if sums == nil {
			sums = []session.Summary{}
		}
		writeJSON(w, http.StatusOK, sums)
	}
}

// GET /api/me/stats
func UserStatsHandler(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /api/catalog/{testType}/subjects
func SubjectCatalogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := question.TestType(chi.URLParam(r, "testType"))
		subjects := question.SubjectsFor(t)
		if len(subjects) == 0 {
			http.Error(w, "unknown test type", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"test_type": t,
			"subjects":  subjects,
		})
	}
}
