package question

import "context"

type ListOpts struct {
	TestType TestType
	Subject  string
	Limit    int
	Offset   int
}

// Repo is the question repository the session engine draws from. Fetch
// returns up to count questions matching the filter in a stable order;
// returning fewer than count is not an error at this layer.
type Repo interface {
	Fetch(ctx context.Context, t TestType, subjects []string, count int) ([]Question, error)
	ByIDs(ctx context.Context, ids []string) (map[string]Question, error)
	Put(ctx context.Context, q Question) error
	List(ctx context.Context, opts ListOpts) ([]Question, error)
}
