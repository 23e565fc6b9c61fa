package question

import (
	"context"
	"fmt"
	"testing"
)

func TestSubjectsForTracks(t *testing.T) {
	polri := SubjectsFor(TestPOLRI)
	cpns := SubjectsFor(TestCPNS)
	campur := SubjectsFor(TestCampur)

	if len(polri) != 4 || len(cpns) != 3 {
		t.Fatalf("catalog sizes: polri=%d cpns=%d", len(polri), len(cpns))
	}
	// campur is the union; wawasan_kebangsaan appears in both tracks and
	// must not be duplicated.
	seen := map[string]int{}
	for _, s := range campur {
		seen[s]++
	}
	for s, n := range seen {
		if n != 1 {
			t.Fatalf("subject %s appears %d times in campur", s, n)
		}
	}
	for _, s := range append(append([]string{}, polri...), cpns...) {
		if seen[s] == 0 {
			t.Fatalf("subject %s missing from campur", s)
		}
	}
	if SubjectsFor(TestType("toefl")) != nil {
		t.Fatalf("unknown track must have no catalog")
	}
}

func TestValidSubjects(t *testing.T) {
	cases := []struct {
		tt       TestType
		subjects []string
		want     bool
	}{
		{TestPOLRI, []string{"numerik"}, true},
		{TestPOLRI, []string{"numerik", "bahasa_inggris"}, true},
		{TestPOLRI, nil, false},
		{TestPOLRI, []string{}, false},
		{TestPOLRI, []string{"tiu"}, false},
		{TestCPNS, []string{"tiu", "tkp"}, true},
		{TestCampur, []string{"tiu", "numerik"}, true},
		{TestCampur, []string{"aljabar"}, false},
	}
	for _, c := range cases {
		if got := ValidSubjects(c.tt, c.subjects); got != c.want {
			t.Fatalf("ValidSubjects(%s, %v) = %v, want %v", c.tt, c.subjects, got, c.want)
		}
	}
}

func TestMemoryRepoFetchAndByIDs(t *testing.T) {
	repo := NewInMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = repo.Put(ctx, Question{
			ID:           fmt.Sprintf("n%d", i),
			TestType:     TestPOLRI,
			Subject:      "numerik",
			Prompt:       "p",
			Choices:      []string{"a", "b"},
			CorrectIndex: 0,
		})
	}
	_ = repo.Put(ctx, Question{
		ID: "c0", TestType: TestCPNS, Subject: "tiu",
		Prompt: "p", Choices: []string{"a", "b"}, CorrectIndex: 1,
	})

	qs, err := repo.Fetch(ctx, TestPOLRI, []string{"numerik"}, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("fetch count: %d", len(qs))
	}

	// campur draws from both tracks
	qs, err = repo.Fetch(ctx, TestCampur, []string{"numerik", "tiu"}, 10)
	if err != nil {
		t.Fatalf("fetch campur: %v", err)
	}
	if len(qs) != 6 {
		t.Fatalf("campur fetch count: %d", len(qs))
	}

	byID, err := repo.ByIDs(ctx, []string{"n0", "c0", "missing"})
	if err != nil {
		t.Fatalf("byIDs: %v", err)
	}
	if len(byID) != 2 {
		t.Fatalf("byIDs count: %d", len(byID))
	}
	if _, ok := byID["missing"]; ok {
		t.Fatalf("missing id resolved")
	}
}

func TestViewHidesAnswerKey(t *testing.T) {
	q := Question{
		ID: "q1", TestType: TestPOLRI, Subject: "numerik",
		Prompt: "2+2?", Choices: []string{"3", "4"}, CorrectIndex: 1,
		Explanation: "basic addition",
	}
	v := q.View(7)
	if v.Position != 7 || v.ID != "q1" || len(v.Choices) != 2 {
		t.Fatalf("view: %+v", v)
	}
}
