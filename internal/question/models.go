package question

// TestType selects which exam track a question belongs to.
type TestType string

const (
	TestPOLRI  TestType = "polri"
	TestCPNS   TestType = "cpns"
	TestCampur TestType = "campur" // mixed POLRI + CPNS pool
)

// Question is one multiple-choice item as served by the question
// repository. Choices are opaque display strings; only CorrectIndex is
// used for grading.
type Question struct {
	ID           string   `json:"id"`
	TestType     TestType `json:"test_type"`
	Subject      string   `json:"subject"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// View is the student-safe projection: no correct index, no explanation.
type View struct {
	ID       string   `json:"id"`
	Subject  string   `json:"subject"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices"`
	Position int      `json:"position"`
}

func (q Question) View(position int) View {
	return View{
		ID:       q.ID,
		Subject:  q.Subject,
		Prompt:   q.Prompt,
		Choices:  q.Choices,
		Position: position,
	}
}
