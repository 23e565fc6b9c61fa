package tier

import "log"

// Tier is the subscription level attached to a user by the identity
// provider. It controls session size, daily frequency, and feature gates.
type Tier string

const (
	Free    Tier = "free"
	Basic   Tier = "basic"
	Premium Tier = "premium"
)

// Limits are the per-tier caps and feature flags. One immutable instance
// per tier; fields are non-decreasing from free to premium.
type Limits struct {
	MaxQuestionsPerSession int
	// MaxSessionsPerDay of 0 means unlimited.
	MaxSessionsPerDay   int
	ExplanationsEnabled bool
	SimulationsEnabled  bool
}

// Unlimited marks a daily-session cap as absent.
const Unlimited = 0

var limits = map[Tier]Limits{
	Free: {
		MaxQuestionsPerSession: 20,
		MaxSessionsPerDay:      3,
	},
	Basic: {
		MaxQuestionsPerSession: 50,
		MaxSessionsPerDay:      10,
		ExplanationsEnabled:    true,
	},
	Premium: {
		MaxQuestionsPerSession: 250,
		MaxSessionsPerDay:      Unlimited,
		ExplanationsEnabled:    true,
		SimulationsEnabled:     true,
	},
}

// LimitsFor is total: an unknown tier is a caller bug, not a runtime
// condition, so it falls back to the most restrictive tier and logs.
func LimitsFor(t Tier) Limits {
	l, ok := limits[t]
	if !ok {
		log.Printf("tier: unknown tier %q, applying free limits", t)
		return limits[Free]
	}
	return l
}

// AllowsDailySessions reports whether creating one more session today is
// within l, given how many sessions were already created today.
func (l Limits) AllowsDailySessions(createdToday int) bool {
	if l.MaxSessionsPerDay == Unlimited {
		return true
	}
	return createdToday < l.MaxSessionsPerDay
}
