package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ujianhub/ujianhub/internal/session"
)

type errBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Limit   int    `json:"limit,omitempty"`
}

// writeErr maps session error kinds onto HTTP statuses. Policy refusals
// are 422, state conflicts 409, so clients can tell "fix your request"
// from "you are too late".
func writeErr(w http.ResponseWriter, err error) {
	var se *session.Error
	if !errors.As(err, &se) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case session.KindQuestionCountExceeded,
		session.KindDailyLimitReached,
		session.KindSimulationNotAllowed,
		session.KindInvalidSubjectSelection,
		session.KindUnknownQuestion,
		session.KindInsufficientQuestions:
		status = http.StatusUnprocessableEntity
	case session.KindForbidden:
		status = http.StatusForbidden
	case session.KindSessionNotFound:
		status = http.StatusNotFound
	case session.KindInvalidTransition,
		session.KindAlreadySubmitted,
		session.KindSessionExpired:
		status = http.StatusConflict
	case session.KindBackendUnavailable:
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]errBody{"error": {
		Kind:    string(se.Kind),
		Message: se.Msg,
		Limit:   se.Limit,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
