package question

import (
	"context"
	"sort"
	"sync"
)

type memoryRepo struct {
	mu        sync.RWMutex
	questions map[string]Question
}

// NewInMemoryRepo returns a Repo backed by process memory. Used in tests
// and in offline setups without a database.
func NewInMemoryRepo() Repo {
	return &memoryRepo{questions: map[string]Question{}}
}

func (m *memoryRepo) Put(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryRepo) Fetch(_ context.Context, t TestType, subjects []string, count int) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if !matchTrack(t, q.TestType) {
			continue
		}
		if len(subjects) > 0 && !contains(subjects, q.Subject) {
			continue
		}
		out = append(out, q)
	}
	sortQuestions(out)
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

func (m *memoryRepo) ByIDs(_ context.Context, ids []string) (map[string]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Question, len(ids))
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m *memoryRepo) List(_ context.Context, opts ListOpts) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.questions {
		if opts.TestType != "" && q.TestType != opts.TestType {
			continue
		}
		if opts.Subject != "" && q.Subject != opts.Subject {
			continue
		}
		out = append(out, q)
	}
	sortQuestions(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func matchTrack(want, have TestType) bool {
	if want == TestCampur {
		return have == TestPOLRI || have == TestCPNS
	}
	return want == have
}

func sortQuestions(qs []Question) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].Subject != qs[j].Subject {
			return qs[i].Subject < qs[j].Subject
		}
		return qs[i].ID < qs[j].ID
	})
}
