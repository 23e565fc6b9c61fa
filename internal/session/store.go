package session

import (
	"context"
	"time"
)

// Store persists sessions, answers, and grade reports. Implementations
// must make every transition atomic: a guard on the current status is
// checked and the row mutated in one read-modify-write, so a lost race
// surfaces as a tagged state error rather than a second mutation.
//
// Domain conditions come back as *Error; anything else is treated as an
// infrastructure failure by the caller.
type Store interface {
	// CreateSession counts the user's sessions created since dailySince
	// and inserts s in the same transaction. dailyMax 0 disables the cap.
	CreateSession(ctx context.Context, s Session, dailySince time.Time, dailyMax int) error
	GetSession(ctx context.Context, id string) (Session, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)

	// MarkStarted transitions CREATED -> STARTED.
	MarkStarted(ctx context.Context, id string, at time.Time) error
	// MarkExpired transitions STARTED -> EXPIRED.
	MarkExpired(ctx context.Context, id string, at time.Time) error
	// SaveSubmission transitions STARTED -> SUBMITTED and persists the
	// answers and report with the session row, all-or-nothing.
	SaveSubmission(ctx context.Context, s Session, answers []AnswerRecord, rep GradeReport) error

	GetReport(ctx context.Context, sessionID string) (GradeReport, []AnswerRecord, error)
	DeleteSession(ctx context.Context, id string) error

	ListSessions(ctx context.Context, userID string, limit, offset int) ([]Summary, error)
	// ListReports returns the reports of the user's submitted sessions.
	ListReports(ctx context.Context, userID string) ([]GradeReport, error)
}
