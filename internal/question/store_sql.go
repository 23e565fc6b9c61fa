package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SQLRepo persists questions in the questions table. Choices are stored as
// a JSON array, matching how the rest of the schema stores sequences.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) Put(ctx context.Context, q Question) error {
	cj, err := json.Marshal(q.Choices)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO questions
		(id, test_type, subject, difficulty, prompt, choices_json, correct_index, explanation, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
		  test_type=EXCLUDED.test_type, subject=EXCLUDED.subject,
		  difficulty=EXCLUDED.difficulty, prompt=EXCLUDED.prompt,
		  choices_json=EXCLUDED.choices_json, correct_index=EXCLUDED.correct_index,
		  explanation=EXCLUDED.explanation`,
		q.ID, string(q.TestType), q.Subject, q.Difficulty, q.Prompt, string(cj),
		q.CorrectIndex, q.Explanation, time.Now().Unix())
	return err
}

func (r *SQLRepo) Fetch(ctx context.Context, t TestType, subjects []string, count int) ([]Question, error) {
	if count <= 0 {
		return nil, nil
	}
	var (
		conds []string
		args  []interface{}
	)
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	// CAMPUR draws from both tracks.
	if t == TestCampur {
		conds = append(conds, fmt.Sprintf("test_type IN (%s,%s)", arg(string(TestPOLRI)), arg(string(TestCPNS))))
	} else {
		conds = append(conds, "test_type="+arg(string(t)))
	}
	if len(subjects) > 0 {
		ph := make([]string, len(subjects))
		for i, s := range subjects {
			ph[i] = arg(s)
		}
		conds = append(conds, "subject IN ("+strings.Join(ph, ",")+")")
	}
	q := `SELECT id, test_type, subject, difficulty, prompt, choices_json, correct_index, explanation
		FROM questions WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY subject, id LIMIT ` + arg(count)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func (r *SQLRepo) ByIDs(ctx context.Context, ids []string) (map[string]Question, error) {
	out := make(map[string]Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ph := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, test_type, subject, difficulty, prompt, choices_json, correct_index, explanation
		FROM questions WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	qs, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		out[q.ID] = q
	}
	return out, nil
}

func (r *SQLRepo) List(ctx context.Context, opts ListOpts) ([]Question, error) {
	var (
		conds []string
		args  []interface{}
	)
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.TestType != "" {
		conds = append(conds, "test_type="+arg(string(opts.TestType)))
	}
	if opts.Subject != "" {
		conds = append(conds, "subject="+arg(opts.Subject))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id, test_type, subject, difficulty, prompt, choices_json, correct_index, explanation
		FROM questions` + where + ` ORDER BY subject, id LIMIT ` + arg(limit) + ` OFFSET ` + arg(opts.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	var out []Question
	for rows.Next() {
		var (
			q  Question
			tt string
			cj string
		)
		if err := rows.Scan(&q.ID, &tt, &q.Subject, &q.Difficulty, &q.Prompt, &cj, &q.CorrectIndex, &q.Explanation); err != nil {
			return nil, err
		}
		q.TestType = TestType(tt)
		if err := json.Unmarshal([]byte(cj), &q.Choices); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
