package session

import (
	"time"

	"github.com/ujianhub/ujianhub/internal/grading"
	"github.com/ujianhub/ujianhub/internal/question"
)

// Status is the session lifecycle state. SUBMITTED and EXPIRED are
// terminal.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusStarted   Status = "STARTED"
	StatusSubmitted Status = "SUBMITTED"
	StatusExpired   Status = "EXPIRED"
)

// Mode selects the timing model: practice allots a fixed budget per
// question, simulation runs under a fixed exam duration.
type Mode string

const (
	ModePractice   Mode = "practice"
	ModeSimulation Mode = "simulation"
)

// Session is one timed attempt at a set of questions. Owned exclusively
// by the creating user; mutated only through Service transitions.
type Session struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	TestType         question.TestType `json:"test_type"`
	Subjects         []string          `json:"subjects"`
	QuestionIDs      []string          `json:"question_ids"`
	Mode             Mode              `json:"mode"`
	Status           Status            `json:"status"`
	TimeLimitSeconds int               `json:"time_limit_seconds"`
	CreatedAt        time.Time         `json:"created_at"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	DurationSeconds  int               `json:"duration_seconds,omitempty"`
}

// Answer is one submitted answer on the wire. Selected is nil for a blank.
type Answer struct {
	QuestionID string `json:"question_id"`
	Selected   *int   `json:"selected"`
}

// AnswerRecord is the persisted form of an answer: correctness is
// computed at grading time and the subject is copied from the question so
// aggregates stay stable if the question is later edited.
type AnswerRecord struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Selected   *int   `json:"selected"`
	IsCorrect  bool   `json:"is_correct"`
	Subject    string `json:"subject"`
}

// GradeReport is produced exactly once, at the SUBMITTED transition.
type GradeReport struct {
	SessionID string `json:"session_id"`
	grading.Report
	ElapsedSeconds int       `json:"elapsed_seconds"`
	LateSubmission bool      `json:"late_submission"`
	GradedAt       time.Time `json:"graded_at"`
}

// QuestionReview is one question in an assembled result. Explanation is
// populated only for tiers with explanations enabled.
type QuestionReview struct {
	QuestionID  string   `json:"question_id"`
	Subject     string   `json:"subject"`
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices"`
	Selected    *int     `json:"selected"`
	Correct     int      `json:"correct"`
	IsCorrect   bool     `json:"is_correct"`
	Explanation string   `json:"explanation,omitempty"`
}

// Result is the outward package of a graded session.
type Result struct {
	Session   Session          `json:"session"`
	Report    GradeReport      `json:"report"`
	Questions []QuestionReview `json:"questions"`
}

// Summary is the listing projection of a session.
type Summary struct {
	ID             string            `json:"id"`
	TestType       question.TestType `json:"test_type"`
	Mode           Mode              `json:"mode"`
	Status         Status            `json:"status"`
	TotalQuestions int               `json:"total_questions"`
	ScorePercent   *float64          `json:"score_percent,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	SubmittedAt    *time.Time        `json:"submitted_at,omitempty"`
}

// UserStats aggregates a user's submitted sessions.
type UserStats struct {
	TotalSessions   int                            `json:"total_sessions"`
	TotalQuestions  int                            `json:"total_questions"`
	TotalCorrect    int                            `json:"total_correct"`
	OverallAccuracy float64                        `json:"overall_accuracy"`
	BestScore       float64                        `json:"best_score"`
	SubjectStats    map[string]grading.SubjectStat `json:"subject_stats"`
}
