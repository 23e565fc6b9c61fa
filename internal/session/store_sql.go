package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/ujianhub/ujianhub/internal/question"
)

// SQLStore persists sessions over database/sql. Works against sqlite and
// postgres; sequences are stored as JSON columns the way the schema does
// elsewhere. Every transition is one transaction with a status guard in
// the UPDATE, so concurrent writers cannot both apply.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) CreateSession(ctx context.Context, sess Session, dailySince time.Time, dailyMax int) error {
	subjects, err := json.Marshal(sess.Subjects)
	if err != nil {
		return err
	}
	qids, err := json.Marshal(sess.QuestionIDs)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if dailyMax > 0 {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sessions WHERE user_id=$1 AND created_at>=$2`,
			sess.UserID, dailySince.Unix()).Scan(&count); err != nil {
			return err
		}
		if count >= dailyMax {
			return EL(KindDailyLimitReached, "daily session limit reached", dailyMax)
		}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO sessions
		(id, user_id, test_type, subjects_json, question_ids_json, mode, status, time_limit_sec, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sess.ID, sess.UserID, string(sess.TestType), string(subjects), string(qids),
		string(sess.Mode), string(sess.Status), sess.TimeLimitSeconds, sess.CreatedAt.Unix())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	return scanSession(s.db.QueryRowContext(ctx, `SELECT id, user_id, test_type, subjects_json,
		question_ids_json, mode, status, time_limit_sec, created_at, started_at, submitted_at, duration_sec
		FROM sessions WHERE id=$1`, id))
}

func (s *SQLStore) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id=$1 AND created_at>=$2`,
		userID, since.Unix()).Scan(&count)
	return count, err
}

func (s *SQLStore) MarkStarted(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status=$1, started_at=$2 WHERE id=$3 AND status=$4`,
		string(StatusStarted), at.Unix(), id, string(StatusCreated))
	if err != nil {
		return err
	}
	return s.checkGuard(ctx, res, id)
}

func (s *SQLStore) MarkExpired(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status=$1, submitted_at=$2 WHERE id=$3 AND status=$4`,
		string(StatusExpired), at.Unix(), id, string(StatusStarted))
	if err != nil {
		return err
	}
	return s.checkGuard(ctx, res, id)
}

func (s *SQLStore) SaveSubmission(ctx context.Context, sess Session, answers []AnswerRecord, rep GradeReport) error {
	repJSON, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status=$1, submitted_at=$2, duration_sec=$3 WHERE id=$4 AND status=$5`,
		string(StatusSubmitted), sess.SubmittedAt.Unix(), sess.DurationSeconds, sess.ID, string(StatusStarted))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cur, gerr := s.GetSession(ctx, sess.ID)
		if gerr != nil {
			return gerr
		}
		return transitionError(cur.Status)
	}
	for _, a := range answers {
		var selected interface{}
		if a.Selected != nil {
			selected = *a.Selected
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO answers
			(session_id, question_id, selected, is_correct, subject)
			VALUES ($1,$2,$3,$4,$5)`,
			a.SessionID, a.QuestionID, selected, a.IsCorrect, a.Subject); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO grade_reports
		(session_id, report_json, score_percent, graded_at)
		VALUES ($1,$2,$3,$4)`,
		rep.SessionID, string(repJSON), rep.ScorePercent, rep.GradedAt.Unix()); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetReport(ctx context.Context, sessionID string) (GradeReport, []AnswerRecord, error) {
	var repJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM grade_reports WHERE session_id=$1`, sessionID).Scan(&repJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return GradeReport{}, nil, E(KindSessionNotFound, "report not found")
	}
	if err != nil {
		return GradeReport{}, nil, err
	}
	var rep GradeReport
	if err := json.Unmarshal([]byte(repJSON), &rep); err != nil {
		return GradeReport{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT session_id, question_id, selected, is_correct, subject
		FROM answers WHERE session_id=$1`, sessionID)
	if err != nil {
		return GradeReport{}, nil, err
	}
	defer rows.Close()
	var records []AnswerRecord
	for rows.Next() {
		var (
			a        AnswerRecord
			selected sql.NullInt64
		)
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &selected, &a.IsCorrect, &a.Subject); err != nil {
			return GradeReport{}, nil, err
		}
		if selected.Valid {
			v := int(selected.Int64)
			a.Selected = &v
		}
		records = append(records, a)
	}
	return rep, records, rows.Err()
}

func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return E(KindSessionNotFound, "session not found")
	}
	// answers and grade_reports cascade on the session FK
	return nil
}

func (s *SQLStore) ListSessions(ctx context.Context, userID string, limit, offset int) ([]Summary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.test_type, s.mode, s.status,
			s.question_ids_json, s.created_at, s.submitted_at, r.score_percent
		FROM sessions s LEFT JOIN grade_reports r ON r.session_id = s.id
		WHERE s.user_id=$1 ORDER BY s.created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			tt, mode  string
			status    string
			qidsJSON  string
			created   int64
			submitted sql.NullInt64
			score     sql.NullFloat64
		)
		if err := rows.Scan(&sum.ID, &tt, &mode, &status, &qidsJSON, &created, &submitted, &score); err != nil {
			return nil, err
		}
		var qids []string
		if err := json.Unmarshal([]byte(qidsJSON), &qids); err != nil {
			return nil, err
		}
		sum.TestType, sum.Mode, sum.Status = question.TestType(tt), Mode(mode), Status(status)
		sum.TotalQuestions = len(qids)
		sum.CreatedAt = time.Unix(created, 0).UTC()
		if submitted.Valid {
			t := time.Unix(submitted.Int64, 0).UTC()
			sum.SubmittedAt = &t
		}
		if score.Valid {
			v := score.Float64
			sum.ScorePercent = &v
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListReports(ctx context.Context, userID string) ([]GradeReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.report_json
		FROM grade_reports r JOIN sessions s ON s.id = r.session_id
		WHERE s.user_id=$1 ORDER BY r.graded_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GradeReport
	for rows.Next() {
		var repJSON string
		if err := rows.Scan(&repJSON); err != nil {
			return nil, err
		}
		var rep GradeReport
		if err := json.Unmarshal([]byte(repJSON), &rep); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *SQLStore) checkGuard(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		cur, gerr := s.GetSession(ctx, id)
		if gerr != nil {
			return gerr
		}
		return transitionError(cur.Status)
	}
	return nil
}

func scanSession(row *sql.Row) (Session, error) {
	var (
		sess          Session
		tt, mode, st  string
		subjectsJSON  string
		qidsJSON      string
		created       int64
		started       sql.NullInt64
		submitted     sql.NullInt64
		durationValid sql.NullInt64
	)
	err := row.Scan(&sess.ID, &sess.UserID, &tt, &subjectsJSON, &qidsJSON, &mode, &st,
		&sess.TimeLimitSeconds, &created, &started, &submitted, &durationValid)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, E(KindSessionNotFound, "session not found")
	}
	if err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(subjectsJSON), &sess.Subjects); err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(qidsJSON), &sess.QuestionIDs); err != nil {
		return Session{}, err
	}
	sess.TestType, sess.Mode, sess.Status = question.TestType(tt), Mode(mode), Status(st)
	sess.CreatedAt = time.Unix(created, 0).UTC()
	if started.Valid {
		t := time.Unix(started.Int64, 0).UTC()
		sess.StartedAt = &t
	}
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0).UTC()
		sess.SubmittedAt = &t
	}
	if durationValid.Valid {
		sess.DurationSeconds = int(durationValid.Int64)
	}
	return sess, nil
}
