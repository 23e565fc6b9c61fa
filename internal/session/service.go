package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ujianhub/ujianhub/internal/grading"
	"github.com/ujianhub/ujianhub/internal/question"
	"github.com/ujianhub/ujianhub/internal/tier"
)

// Clock supplies the current time. Injected so tests simulate time
// passage instead of sleeping.
type Clock func() time.Time

// LatePolicy decides what happens to a submit that arrives after the
// time limit has elapsed.
type LatePolicy string

const (
	// LateAcceptFlagged grades the submission in full and marks the
	// report with LateSubmission=true.
	LateAcceptFlagged LatePolicy = "accept_flagged"
	// LateReject refuses the submission and expires the session.
	LateReject LatePolicy = "reject"
)

// EventSink receives lifecycle events for the append-only log. May be nil.
type EventSink interface {
	Append(ctx context.Context, typ, key, dataJSON string) error
}

// Config carries the timing and grading knobs the engine must not
// hardcode.
type Config struct {
	PracticeSecondsPerQuestion int
	SimulationDurationSeconds  int
	PassThresholdPercent       float64
	LateSubmissionPolicy       LatePolicy
}

// Service is the practice session engine: admission, lifecycle, grading,
// result assembly. Transitions are serialized per session; admission is
// serialized per user so the daily-limit check and the insert cannot
// race.
type Service struct {
	store     Store
	questions question.Repo
	events    EventSink
	cfg       Config
	now       Clock

	sessionLocks *keyedMutex
	userLocks    *keyedMutex
}

func NewService(store Store, questions question.Repo, events EventSink, cfg Config, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	if cfg.PracticeSecondsPerQuestion <= 0 {
		cfg.PracticeSecondsPerQuestion = 60
	}
	if cfg.SimulationDurationSeconds <= 0 {
		cfg.SimulationDurationSeconds = 7200
	}
	if cfg.PassThresholdPercent <= 0 {
		cfg.PassThresholdPercent = 60
	}
	if cfg.LateSubmissionPolicy == "" {
		cfg.LateSubmissionPolicy = LateAcceptFlagged
	}
	return &Service{
		store:        store,
		questions:    questions,
		events:       events,
		cfg:          cfg,
		now:          now,
		sessionLocks: newKeyedMutex(),
		userLocks:    newKeyedMutex(),
	}
}

// CreateInput is a session-creation request as validated by admission.
type CreateInput struct {
	TestType      question.TestType `json:"test_type"`
	Subjects      []string          `json:"subjects"`
	QuestionCount int               `json:"question_count"`
	Mode          Mode              `json:"mode"`
}

// Create validates in against the caller's tier and history, draws
// questions, and persists a new CREATED session. The daily-count check
// and the insert run under the same per-user serialization and are
// re-checked inside the store transaction.
func (s *Service) Create(ctx context.Context, userID string, t tier.Tier, in CreateInput) (Session, []question.View, error) {
	limits := tier.LimitsFor(t)

	if in.QuestionCount <= 0 {
		return Session{}, nil, E(KindInvalidSubjectSelection, "question count must be positive")
	}
	if in.QuestionCount > limits.MaxQuestionsPerSession {
		return Session{}, nil, EL(KindQuestionCountExceeded,
			fmt.Sprintf("tier %s allows at most %d questions per session", t, limits.MaxQuestionsPerSession),
			limits.MaxQuestionsPerSession)
	}
	mode := in.Mode
	if mode == "" {
		mode = ModePractice
	}
	if mode != ModePractice && mode != ModeSimulation {
		return Session{}, nil, E(KindInvalidSubjectSelection, "unknown mode "+string(mode))
	}
	if mode == ModeSimulation && !limits.SimulationsEnabled {
		return Session{}, nil, E(KindSimulationNotAllowed,
			fmt.Sprintf("tier %s does not include simulation mode", t))
	}

	unlock := s.userLocks.Lock(userID)
	defer unlock()

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if limits.MaxSessionsPerDay != tier.Unlimited {
		count, err := s.store.CountCreatedSince(ctx, userID, dayStart)
		if err != nil {
			return Session{}, nil, backendErr("count sessions", err)
		}
		if !limits.AllowsDailySessions(count) {
			return Session{}, nil, EL(KindDailyLimitReached,
				fmt.Sprintf("tier %s allows %d sessions per day", t, limits.MaxSessionsPerDay),
				limits.MaxSessionsPerDay)
		}
	}

	subjects := in.Subjects
	if mode == ModeSimulation && len(subjects) == 0 {
		// Simulation defaults to the full catalog for the track.
		subjects = question.SubjectsFor(in.TestType)
	}
	if !question.ValidSubjects(in.TestType, subjects) {
		return Session{}, nil, E(KindInvalidSubjectSelection,
			"subjects must be a non-empty subset of the "+string(in.TestType)+" catalog")
	}

	qs, err := s.questions.Fetch(ctx, in.TestType, subjects, in.QuestionCount)
	if err != nil {
		return Session{}, nil, backendErr("fetch questions", err)
	}
	if len(qs) < in.QuestionCount {
		log.Printf("session: repository returned %d/%d questions (test_type=%s subjects=%v)",
			len(qs), in.QuestionCount, in.TestType, subjects)
		return Session{}, nil, EL(KindInsufficientQuestions,
			fmt.Sprintf("only %d questions available", len(qs)), in.QuestionCount)
	}

	timeLimit := in.QuestionCount * s.cfg.PracticeSecondsPerQuestion
	if mode == ModeSimulation {
		timeLimit = s.cfg.SimulationDurationSeconds
	}
	qids := make([]string, len(qs))
	views := make([]question.View, len(qs))
	for i, q := range qs {
		qids[i] = q.ID
		views[i] = q.View(i)
	}
	sess := Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		TestType:         in.TestType,
		Subjects:         subjects,
		QuestionIDs:      qids,
		Mode:             mode,
		Status:           StatusCreated,
		TimeLimitSeconds: timeLimit,
		CreatedAt:        now,
	}
	dailyMax := limits.MaxSessionsPerDay
	if err := s.store.CreateSession(ctx, sess, dayStart, dailyMax); err != nil {
		if KindOf(err) != "" {
			return Session{}, nil, err
		}
		return Session{}, nil, backendErr("create session", err)
	}
	s.emit(ctx, "SessionCreated", sess.ID,
		fmt.Sprintf(`{"user_id":%q,"test_type":%q,"mode":%q,"questions":%d}`,
			userID, in.TestType, mode, len(qids)))
	return sess, views, nil
}

// Start transitions CREATED -> STARTED and arms the timer.
func (s *Service) Start(ctx context.Context, sessionID, byUserID string) (Session, error) {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != byUserID {
		return Session{}, E(KindForbidden, "session belongs to another user")
	}
	if sess.Status != StatusCreated {
		if sess.Status == StatusSubmitted {
			return Session{}, E(KindAlreadySubmitted, "session already submitted")
		}
		return Session{}, E(KindInvalidTransition, "cannot start a session in state "+string(sess.Status))
	}
	at := s.now().UTC()
	if err := s.store.MarkStarted(ctx, sessionID, at); err != nil {
		if KindOf(err) != "" {
			return Session{}, err
		}
		return Session{}, backendErr("start session", err)
	}
	sess.Status = StatusStarted
	sess.StartedAt = &at
	return sess, nil
}

// Expired is the pure expiry query: a STARTED session whose deadline has
// passed is logically expired even before any row is updated.
func Expired(sess Session, now time.Time) bool {
	if sess.Status != StatusStarted || sess.StartedAt == nil {
		return false
	}
	return now.Sub(*sess.StartedAt) > time.Duration(sess.TimeLimitSeconds)*time.Second
}

// RemainingSeconds reports how much of the time limit is left, 0 once
// expired or not yet started.
func (s *Service) RemainingSeconds(sess Session) int {
	if sess.Status != StatusStarted || sess.StartedAt == nil {
		return 0
	}
	left := sess.TimeLimitSeconds - int(s.now().UTC().Sub(*sess.StartedAt)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// Submit grades the answers and transitions STARTED -> SUBMITTED. Exactly
// one report is ever produced: a second submit fails with
// ALREADY_SUBMITTED and mutates nothing. A submit past the deadline is
// handled per the configured late policy.
func (s *Service) Submit(ctx context.Context, sessionID, byUserID string, answers []Answer) (GradeReport, error) {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return GradeReport{}, err
	}
	if sess.UserID != byUserID {
		return GradeReport{}, E(KindForbidden, "session belongs to another user")
	}
	switch sess.Status {
	case StatusStarted:
	case StatusSubmitted:
		return GradeReport{}, E(KindAlreadySubmitted, "session already submitted")
	default:
		return GradeReport{}, E(KindInvalidTransition, "cannot submit a session in state "+string(sess.Status))
	}

	inSession := make(map[string]bool, len(sess.QuestionIDs))
	for _, id := range sess.QuestionIDs {
		inSession[id] = true
	}
	for _, a := range answers {
		if !inSession[a.QuestionID] {
			log.Printf("session: submit %s referenced question %s outside the session", sessionID, a.QuestionID)
			return GradeReport{}, E(KindUnknownQuestion, "question "+a.QuestionID+" is not part of this session")
		}
	}

	now := s.now().UTC()
	late := Expired(sess, now)
	if late && s.cfg.LateSubmissionPolicy == LateReject {
		if err := s.store.MarkExpired(ctx, sessionID, now); err != nil && KindOf(err) == "" {
			return GradeReport{}, backendErr("expire session", err)
		}
		return GradeReport{}, E(KindSessionExpired, "time limit exceeded")
	}

	byID, err := s.questions.ByIDs(ctx, sess.QuestionIDs)
	if err != nil {
		return GradeReport{}, backendErr("load questions", err)
	}
	gqs := make([]grading.Q, 0, len(sess.QuestionIDs))
	for _, id := range sess.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			log.Printf("session: question %s vanished from the repository for session %s", id, sessionID)
			return GradeReport{}, E(KindUnknownQuestion, "question "+id+" no longer exists")
		}
		gqs = append(gqs, grading.Q{ID: q.ID, Subject: q.Subject, CorrectIndex: q.CorrectIndex})
	}
	gas := make([]grading.Answer, len(answers))
	for i, a := range answers {
		gas[i] = grading.Answer{QuestionID: a.QuestionID, Selected: a.Selected}
	}
	report := grading.Grade(gqs, gas, grading.WithPassThreshold(s.cfg.PassThresholdPercent))

	sess.Status = StatusSubmitted
	sess.SubmittedAt = &now
	sess.DurationSeconds = int(now.Sub(*sess.StartedAt) / time.Second)

	rep := GradeReport{
		SessionID:      sess.ID,
		Report:         report,
		ElapsedSeconds: sess.DurationSeconds,
		LateSubmission: late,
		GradedAt:       now,
	}
	records := make([]AnswerRecord, 0, len(gqs))
	for _, q := range gqs {
		qr := report.PerQuestion[q.ID]
		records = append(records, AnswerRecord{
			SessionID:  sess.ID,
			QuestionID: q.ID,
			Selected:   qr.Selected,
			IsCorrect:  qr.IsCorrect,
			Subject:    q.Subject,
		})
	}
	if err := s.store.SaveSubmission(ctx, sess, records, rep); err != nil {
		if KindOf(err) != "" {
			return GradeReport{}, err
		}
		return GradeReport{}, backendErr("save submission", err)
	}
	s.emit(ctx, "SessionSubmitted", sess.ID,
		fmt.Sprintf(`{"score_percent":%.2f,"late":%t}`, rep.ScorePercent, late))
	return rep, nil
}

// Get returns a session with its student-safe question views, for the
// owner or an admin.
func (s *Service) Get(ctx context.Context, sessionID, byUserID, role string) (Session, []question.View, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return Session{}, nil, err
	}
	if sess.UserID != byUserID && role != "admin" {
		return Session{}, nil, E(KindForbidden, "session belongs to another user")
	}
	byID, err := s.questions.ByIDs(ctx, sess.QuestionIDs)
	if err != nil {
		return Session{}, nil, backendErr("load questions", err)
	}
	views := make([]question.View, 0, len(sess.QuestionIDs))
	for i, id := range sess.QuestionIDs {
		if q, ok := byID[id]; ok {
			views = append(views, q.View(i))
		}
	}
	return sess, views, nil
}

// Result fetches the graded outcome and assembles it with tier-gated
// explanations.
func (s *Service) Result(ctx context.Context, sessionID, byUserID, role string, t tier.Tier) (Result, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	if sess.UserID != byUserID && role != "admin" {
		return Result{}, E(KindForbidden, "session belongs to another user")
	}
	if sess.Status != StatusSubmitted {
		return Result{}, E(KindInvalidTransition, "session has no result yet")
	}
	rep, records, err := s.store.GetReport(ctx, sessionID)
	if err != nil {
		if KindOf(err) != "" {
			return Result{}, err
		}
		return Result{}, backendErr("load report", err)
	}
	byID, err := s.questions.ByIDs(ctx, sess.QuestionIDs)
	if err != nil {
		return Result{}, backendErr("load questions", err)
	}
	return AssembleResult(sess, rep, records, byID, t), nil
}

// Delete removes a session in any state. Allowed for the owner or an
// admin; a submit racing a delete loses and fails with SESSION_NOT_FOUND.
func (s *Service) Delete(ctx context.Context, sessionID, byUserID, role string) error {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.UserID != byUserID && role != "admin" {
		return E(KindForbidden, "session belongs to another user")
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		if KindOf(err) != "" {
			return err
		}
		return backendErr("delete session", err)
	}
	s.emit(ctx, "SessionDeleted", sessionID, fmt.Sprintf(`{"by":%q}`, byUserID))
	return nil
}

// List returns the caller's sessions, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Summary, error) {
	out, err := s.store.ListSessions(ctx, userID, limit, offset)
	if err != nil {
		return nil, backendErr("list sessions", err)
	}
	return out, nil
}

// Stats aggregates the caller's submitted sessions into lifetime totals.
func (s *Service) Stats(ctx context.Context, userID string) (UserStats, error) {
	reports, err := s.store.ListReports(ctx, userID)
	if err != nil {
		return UserStats{}, backendErr("list reports", err)
	}
	stats := UserStats{SubjectStats: map[string]grading.SubjectStat{}}
	for _, rep := range reports {
		stats.TotalSessions++
		stats.TotalQuestions += rep.TotalQuestions
		stats.TotalCorrect += rep.CorrectCount
		if rep.ScorePercent > stats.BestScore {
			stats.BestScore = rep.ScorePercent
		}
		for subject, st := range rep.PerSubject {
			agg := stats.SubjectStats[subject]
			agg.Total += st.Total
			agg.Correct += st.Correct
			stats.SubjectStats[subject] = agg
		}
	}
	if stats.TotalQuestions > 0 {
		stats.OverallAccuracy = round2(float64(stats.TotalCorrect) / float64(stats.TotalQuestions) * 100)
	}
	for subject, agg := range stats.SubjectStats {
		if agg.Total > 0 {
			agg.Percent = round2(float64(agg.Correct) / float64(agg.Total) * 100)
		}
		stats.SubjectStats[subject] = agg
	}
	return stats, nil
}

func (s *Service) getSession(ctx context.Context, id string) (Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		if KindOf(err) != "" {
			return Session{}, err
		}
		return Session{}, backendErr("load session", err)
	}
	return sess, nil
}

func (s *Service) emit(ctx context.Context, typ, key, dataJSON string) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, dataJSON); err != nil {
		log.Printf("session: event %s for %s not recorded: %v", typ, key, err)
	}
}

func backendErr(op string, err error) *Error {
	log.Printf("session: %s: %v", op, err)
	return E(KindBackendUnavailable, op+" failed")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
