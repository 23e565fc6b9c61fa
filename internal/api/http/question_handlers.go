package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ujianhub/ujianhub/internal/question"
)

// PUT /api/admin/questions  — single item or array, admin only.
func UpsertQuestionsHandler(repo question.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeQuestions(r)
		if err != "" {
			http.Error(w, err, http.StatusBadRequest)
			return
		}
		for i := range body {
			if body[i].ID == "" {
				body[i].ID = uuid.NewString()
			}
			if msg := validateQuestion(body[i]); msg != "" {
				http.Error(w, msg, http.StatusUnprocessableEntity)
				return
			}
		}
		for _, q := range body {
			if err := repo.Put(r.Context(), q); err != nil {
				http.Error(w, "store question", http.StatusServiceUnavailable)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]int{"upserted": len(body)})
	}
}

// GET /api/admin/questions?test_type=&subject=&limit=&offset= — admin
// only; includes correct indexes and explanations.
func ListQuestionsHandler(repo question.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		out, err := repo.List(r.Context(), question.ListOpts{
			TestType: question.TestType(q.Get("test_type")),
			Subject:  q.Get("subject"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			http.Error(w, "list questions", http.StatusServiceUnavailable)
			return
		}
		if out == nil {
			out = []question.Question{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// decodeQuestions accepts either one question object or an array.
func decodeQuestions(r *http.Request) ([]question.Question, string) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, "bad json"
	}
	if len(raw) > 0 && raw[0] == '[' {
		var qs []question.Question
		if err := json.Unmarshal(raw, &qs); err != nil {
			return nil, "bad json"
		}
		return qs, ""
	}
	var q question.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, "bad json"
	}
	return []question.Question{q}, ""
}

func validateQuestion(q question.Question) string {
	if q.TestType != question.TestPOLRI && q.TestType != question.TestCPNS {
		return "test_type must be polri or cpns"
	}
	if !question.ValidSubjects(q.TestType, []string{q.Subject}) {
		return "subject " + q.Subject + " is not in the " + string(q.TestType) + " catalog"
	}
	if q.Prompt == "" || len(q.Choices) < 2 {
		return "prompt and at least two choices required"
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return "correct_index out of range"
	}
	return ""
}
