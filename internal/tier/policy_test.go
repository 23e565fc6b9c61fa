package tier

import "testing"

func TestLimitsMonotonic(t *testing.T) {
	free := LimitsFor(Free)
	basic := LimitsFor(Basic)
	premium := LimitsFor(Premium)

	if !(free.MaxQuestionsPerSession < basic.MaxQuestionsPerSession &&
		basic.MaxQuestionsPerSession < premium.MaxQuestionsPerSession) {
		t.Fatalf("question caps not monotonic: %d %d %d",
			free.MaxQuestionsPerSession, basic.MaxQuestionsPerSession, premium.MaxQuestionsPerSession)
	}
	// Unlimited (0) sorts above any finite cap.
	if premium.MaxSessionsPerDay != Unlimited && premium.MaxSessionsPerDay < basic.MaxSessionsPerDay {
		t.Fatalf("premium daily cap below basic")
	}
	if free.MaxSessionsPerDay >= basic.MaxSessionsPerDay {
		t.Fatalf("daily caps not monotonic: free=%d basic=%d", free.MaxSessionsPerDay, basic.MaxSessionsPerDay)
	}
	if free.ExplanationsEnabled || free.SimulationsEnabled {
		t.Fatalf("free tier must not enable explanations or simulations")
	}
	if !basic.ExplanationsEnabled || basic.SimulationsEnabled {
		t.Fatalf("basic tier: want explanations only, got %+v", basic)
	}
	if !premium.ExplanationsEnabled || !premium.SimulationsEnabled {
		t.Fatalf("premium tier must enable everything, got %+v", premium)
	}
}

func TestLimitsForUnknownTierFallsBack(t *testing.T) {
	got := LimitsFor(Tier("platinum"))
	if got != LimitsFor(Free) {
		t.Fatalf("unknown tier should yield free limits, got %+v", got)
	}
}

func TestAllowsDailySessions(t *testing.T) {
	basic := LimitsFor(Basic)
	if !basic.AllowsDailySessions(basic.MaxSessionsPerDay - 1) {
		t.Fatalf("one below the cap should be allowed")
	}
	if basic.AllowsDailySessions(basic.MaxSessionsPerDay) {
		t.Fatalf("at the cap the next session must be denied")
	}
	premium := LimitsFor(Premium)
	if !premium.AllowsDailySessions(100000) {
		t.Fatalf("unlimited tier should always allow")
	}
}
