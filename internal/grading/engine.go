package grading

import "math"

// Q is the minimal view of a question needed for grading. Subject is
// captured here so the breakdown stays stable even if the question is
// edited later.
type Q struct {
	ID           string
	Subject      string
	CorrectIndex int
}

// Answer is one submitted answer. Selected is nil when the candidate left
// the question blank; a blank is never correct.
type Answer struct {
	QuestionID string
	Selected   *int
}

// SubjectStat is the per-subject slice of a report.
type SubjectStat struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// QuestionResult records how a single question was graded.
type QuestionResult struct {
	Selected  *int `json:"selected"`
	Correct   int  `json:"correct"`
	IsCorrect bool `json:"is_correct"`
}

// Report is the deterministic outcome of grading one set of answers
// against one set of questions.
type Report struct {
	TotalQuestions int                       `json:"total_questions"`
	AnsweredCount  int                       `json:"answered_count"`
	CorrectCount   int                       `json:"correct_count"`
	ScorePercent   float64                   `json:"score_percent"`
	PerSubject     map[string]SubjectStat    `json:"per_subject"`
	PerQuestion    map[string]QuestionResult `json:"per_question"`
	Passed         bool                      `json:"passed"`
}

type Option func(*config)

type config struct {
	passThreshold float64
}

// WithPassThreshold sets the minimum ScorePercent counted as a pass.
// The threshold comes from configuration; the engine has no default
// opinion beyond 60.
func WithPassThreshold(pct float64) Option {
	return func(c *config) { c.passThreshold = pct }
}

// Grade is pure: same questions and answers always yield the same report.
// Unanswered questions count toward totals but not toward AnsweredCount.
// A zero-question session grades to 0 percent rather than dividing by zero.
func Grade(questions []Q, answers []Answer, opts ...Option) Report {
	cfg := &config{passThreshold: 60}
	for _, o := range opts {
		o(cfg)
	}

	// Last write wins when the same question was answered twice.
	byQuestion := make(map[string]Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	rep := Report{
		TotalQuestions: len(questions),
		PerSubject:     map[string]SubjectStat{},
		PerQuestion:    map[string]QuestionResult{},
	}
	for _, q := range questions {
		stat := rep.PerSubject[q.Subject]
		stat.Total++

		qr := QuestionResult{Correct: q.CorrectIndex}
		if a, ok := byQuestion[q.ID]; ok && a.Selected != nil {
			rep.AnsweredCount++
			qr.Selected = a.Selected
			if *a.Selected == q.CorrectIndex {
				qr.IsCorrect = true
				rep.CorrectCount++
				stat.Correct++
			}
		}
		rep.PerSubject[q.Subject] = stat
		rep.PerQuestion[q.ID] = qr
	}

	for subject, stat := range rep.PerSubject {
		stat.Percent = round2(percent(stat.Correct, stat.Total))
		rep.PerSubject[subject] = stat
	}
	rep.ScorePercent = round2(percent(rep.CorrectCount, rep.TotalQuestions))
	rep.Passed = rep.ScorePercent >= cfg.passThreshold
	return rep
}

func percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
