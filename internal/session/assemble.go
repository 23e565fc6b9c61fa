package session

import (
	"github.com/ujianhub/ujianhub/internal/question"
	"github.com/ujianhub/ujianhub/internal/tier"
)

// AssembleResult packages a graded session for the caller. This is the
// single point where tier gating shapes the response: explanations are
// attached only when the tier enables them, keeping grading itself
// tier-agnostic.
func AssembleResult(sess Session, rep GradeReport, records []AnswerRecord, byID map[string]question.Question, t tier.Tier) Result {
	withExplanations := tier.LimitsFor(t).ExplanationsEnabled

	recorded := make(map[string]AnswerRecord, len(records))
	for _, r := range records {
		recorded[r.QuestionID] = r
	}
	reviews := make([]QuestionReview, 0, len(sess.QuestionIDs))
	for _, id := range sess.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			// Question deleted since grading; the stored record still
			// carries subject and correctness.
			r := recorded[id]
			reviews = append(reviews, QuestionReview{
				QuestionID: id,
				Subject:    r.Subject,
				Selected:   r.Selected,
				IsCorrect:  r.IsCorrect,
			})
			continue
		}
		review := QuestionReview{
			QuestionID: id,
			Subject:    q.Subject,
			Prompt:     q.Prompt,
			Choices:    q.Choices,
			Correct:    q.CorrectIndex,
		}
		if r, ok := recorded[id]; ok {
			review.Selected = r.Selected
			review.IsCorrect = r.IsCorrect
		}
		if withExplanations {
			review.Explanation = q.Explanation
		}
		reviews = append(reviews, review)
	}
	return Result{Session: sess, Report: rep, Questions: reviews}
}
