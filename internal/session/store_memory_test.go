package session

import (
	"context"
	"testing"
	"time"
)

func sampleSession(id, user string, at time.Time) Session {
	return Session{
		ID:               id,
		UserID:           user,
		TestType:         "polri",
		Subjects:         []string{"numerik"},
		QuestionIDs:      []string{"q1", "q2"},
		Mode:             ModePractice,
		Status:           StatusCreated,
		TimeLimitSeconds: 120,
		CreatedAt:        at,
	}
}

func TestStoreStatusGuards(t *testing.T) {
	st := NewInMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := st.CreateSession(ctx, sampleSession("s1", "u1", at), at, 0); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Submit before start is guarded at the store too.
	s, _ := st.GetSession(ctx, "s1")
	err := st.SaveSubmission(ctx, s, nil, GradeReport{SessionID: "s1"})
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("save from CREATED: %v", err)
	}

	if err := st.MarkStarted(ctx, "s1", at.Add(time.Minute)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := st.MarkStarted(ctx, "s1", at.Add(time.Minute)); KindOf(err) != KindInvalidTransition {
		t.Fatalf("double start: %v", err)
	}

	s, _ = st.GetSession(ctx, "s1")
	s.Status = StatusSubmitted
	now := at.Add(2 * time.Minute)
	s.SubmittedAt = &now
	if err := st.SaveSubmission(ctx, s, nil, GradeReport{SessionID: "s1", GradedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Once submitted, every further transition is refused with
	// ALREADY_SUBMITTED.
	if err := st.SaveSubmission(ctx, s, nil, GradeReport{}); KindOf(err) != KindAlreadySubmitted {
		t.Fatalf("double save: %v", err)
	}
	if err := st.MarkExpired(ctx, "s1", now); KindOf(err) != KindAlreadySubmitted {
		t.Fatalf("expire after submit: %v", err)
	}
}

func TestStoreDailyLimitInsideCreate(t *testing.T) {
	st := NewInMemoryStore()
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		s := sampleSession(id, "u1", day.Add(time.Duration(i)*time.Hour))
		if err := st.CreateSession(ctx, s, day, 3); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	err := st.CreateSession(ctx, sampleSession("d", "u1", day.Add(4*time.Hour)), day, 3)
	if KindOf(err) != KindDailyLimitReached {
		t.Fatalf("fourth create: %v", err)
	}
	// Sessions created before the window do not count.
	if err := st.CreateSession(ctx, sampleSession("e", "u1", day.Add(5*time.Hour)), day.Add(5*time.Hour), 3); err != nil {
		t.Fatalf("create outside window: %v", err)
	}
}

func TestStoreGetReportRoundTrip(t *testing.T) {
	st := NewInMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s := sampleSession("s1", "u1", at)
	if err := st.CreateSession(ctx, s, at, 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.MarkStarted(ctx, "s1", at); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Status = StatusSubmitted
	sel := 1
	records := []AnswerRecord{
		{SessionID: "s1", QuestionID: "q1", Selected: &sel, IsCorrect: true, Subject: "numerik"},
		{SessionID: "s1", QuestionID: "q2", Subject: "numerik"},
	}
	rep := GradeReport{SessionID: "s1", GradedAt: at.Add(time.Minute)}
	if err := st.SaveSubmission(ctx, s, records, rep); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, recs, err := st.GetReport(ctx, "s1")
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.SessionID != "s1" || len(recs) != 2 {
		t.Fatalf("round trip: rep=%+v records=%d", got, len(recs))
	}
	if recs[0].Selected == nil || *recs[0].Selected != 1 || recs[1].Selected != nil {
		t.Fatalf("selected round trip: %+v", recs)
	}

	if err := st.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := st.GetReport(ctx, "s1"); KindOf(err) != KindSessionNotFound {
		t.Fatalf("report after delete: %v", err)
	}
}
