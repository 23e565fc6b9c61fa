package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	answers  map[string][]AnswerRecord
	reports  map[string]GradeReport
}

// NewInMemoryStore returns a Store backed by process memory. Used in
// tests and in offline setups without a database.
func NewInMemoryStore() Store {
	return &memoryStore{
		sessions: map[string]Session{},
		answers:  map[string][]AnswerRecord{},
		reports:  map[string]GradeReport{},
	}
}

func (m *memoryStore) CreateSession(_ context.Context, s Session, dailySince time.Time, dailyMax int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dailyMax > 0 {
		count := 0
		for _, existing := range m.sessions {
			if existing.UserID == s.UserID && !existing.CreatedAt.Before(dailySince) {
				count++
			}
		}
		if count >= dailyMax {
			return EL(KindDailyLimitReached, "daily session limit reached", dailyMax)
		}
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, E(KindSessionNotFound, "session not found")
	}
	return cloneSession(s), nil
}

func (m *memoryStore) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.UserID == userID && !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) MarkStarted(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return E(KindSessionNotFound, "session not found")
	}
	if s.Status != StatusCreated {
		return transitionError(s.Status)
	}
	started := at
	s.Status = StatusStarted
	s.StartedAt = &started
	m.sessions[id] = s
	return nil
}

func (m *memoryStore) MarkExpired(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return E(KindSessionNotFound, "session not found")
	}
	if s.Status != StatusStarted {
		return transitionError(s.Status)
	}
	s.Status = StatusExpired
	m.sessions[id] = s
	return nil
}

func (m *memoryStore) SaveSubmission(_ context.Context, s Session, answers []AnswerRecord, rep GradeReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return E(KindSessionNotFound, "session not found")
	}
	if cur.Status != StatusStarted {
		return transitionError(cur.Status)
	}
	m.sessions[s.ID] = cloneSession(s)
	m.answers[s.ID] = append([]AnswerRecord(nil), answers...)
	m.reports[s.ID] = rep
	return nil
}

func (m *memoryStore) GetReport(_ context.Context, sessionID string) (GradeReport, []AnswerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.reports[sessionID]
	if !ok {
		return GradeReport{}, nil, E(KindSessionNotFound, "report not found")
	}
	return rep, append([]AnswerRecord(nil), m.answers[sessionID]...), nil
}

func (m *memoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return E(KindSessionNotFound, "session not found")
	}
	delete(m.sessions, id)
	delete(m.answers, id)
	delete(m.reports, id)
	return nil
}

func (m *memoryStore) ListSessions(_ context.Context, userID string, limit, offset int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(all) {
			return nil, nil
		}
		all = all[offset:]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]Summary, 0, len(all))
	for _, s := range all {
		sum := Summary{
			ID:             s.ID,
			TestType:       s.TestType,
			Mode:           s.Mode,
			Status:         s.Status,
			TotalQuestions: len(s.QuestionIDs),
			CreatedAt:      s.CreatedAt,
			SubmittedAt:    s.SubmittedAt,
		}
		if rep, ok := m.reports[s.ID]; ok {
			pct := rep.ScorePercent
			sum.ScorePercent = &pct
		}
		out = append(out, sum)
	}
	return out, nil
}

func (m *memoryStore) ListReports(_ context.Context, userID string) ([]GradeReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []GradeReport
	for id, rep := range m.reports {
		if s, ok := m.sessions[id]; ok && s.UserID == userID {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GradedAt.Before(out[j].GradedAt) })
	return out, nil
}

func transitionError(cur Status) *Error {
	switch cur {
	case StatusSubmitted:
		return E(KindAlreadySubmitted, "session already submitted")
	default:
		return E(KindInvalidTransition, "session is "+string(cur))
	}
}

func cloneSession(s Session) Session {
	s.Subjects = append([]string(nil), s.Subjects...)
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		s.SubmittedAt = &t
	}
	return s
}
