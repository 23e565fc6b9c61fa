package session

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable failure class. The HTTP layer maps
// kinds to status codes without inspecting message text.
type Kind string

const (
	// Policy violations: user-correctable, carry the violated limit.
	KindQuestionCountExceeded   Kind = "QUESTION_COUNT_EXCEEDED"
	KindDailyLimitReached       Kind = "DAILY_LIMIT_REACHED"
	KindSimulationNotAllowed    Kind = "SIMULATION_NOT_ALLOWED"
	KindInvalidSubjectSelection Kind = "INVALID_SUBJECT_SELECTION"

	// State violations: retrying does not help.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindAlreadySubmitted  Kind = "ALREADY_SUBMITTED"
	KindSessionNotFound   Kind = "SESSION_NOT_FOUND"
	KindSessionExpired    Kind = "SESSION_EXPIRED"
	KindForbidden         Kind = "FORBIDDEN"

	// Data violations: repository and engine disagree; logged for
	// investigation.
	KindUnknownQuestion       Kind = "UNKNOWN_QUESTION"
	KindInsufficientQuestions Kind = "INSUFFICIENT_QUESTIONS"

	// Infrastructure: retryable with backoff; no partial mutation occurred.
	KindBackendUnavailable Kind = "BACKEND_UNAVAILABLE"
)

// Error is the tagged error returned by every failing engine operation.
type Error struct {
	Kind Kind
	Msg  string
	// Limit is the violated limit's value for policy violations, 0 otherwise.
	Limit int
}

func (e *Error) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%s: %s (limit %d)", e.Kind, e.Msg, e.Limit)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// E builds a tagged error.
func E(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// EL builds a tagged policy error carrying the violated limit.
func EL(kind Kind, msg string, limit int) *Error {
	return &Error{Kind: kind, Msg: msg, Limit: limit}
}

// KindOf extracts the Kind of err, or "" for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may usefully retry with backoff.
func Retryable(err error) bool {
	return KindOf(err) == KindBackendUnavailable
}
