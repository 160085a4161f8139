package firstrun

import (
	"fmt"

	"NewsRelay/internal/domain"
)

const (
	// SeedName marks everything but the newest article as seen.
	SeedName = "seed"
	// CatchUpName replays a bounded number of recent articles.
	CatchUpName = "catchup"

	DefaultCatchUpSize = 5
)

// Policy decides what the first cycle after startup does with the fetched
// window. Articles arrive newest first.
type Policy interface {
	Name() string
	// Plan returns the ids to record as seen without delivery and the
	// articles to deliver, in delivery order.
	Plan(articles []domain.Article) (seed []domain.ArticleID, deliver []domain.Article)
}

// Seed skips the backlog and surfaces only the newest article.
type Seed struct{}

func (Seed) Name() string { return SeedName }

func (Seed) Plan(articles []domain.Article) ([]domain.ArticleID, []domain.Article) {
	if len(articles) == 0 {
		return nil, nil
	}

	seed := make([]domain.ArticleID, 0, len(articles)-1)
	for _, article := range articles[1:] {
		seed = append(seed, article.ID)
	}
	return seed, articles[:1]
}

// CatchUp delivers the newest Size articles oldest first.
type CatchUp struct {
	Size int
}

func (CatchUp) Name() string { return CatchUpName }

func (c CatchUp) Plan(articles []domain.Article) ([]domain.ArticleID, []domain.Article) {
	size := c.Size
	if size <= 0 {
		size = DefaultCatchUpSize
	}
	if size > len(articles) {
		size = len(articles)
	}

	deliver := make([]domain.Article, 0, size)
	for i := size - 1; i >= 0; i-- {
		deliver = append(deliver, articles[i])
	}
	return nil, deliver
}

// Registry keeps a mapping from policy names to their implementations.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry builds a registry holding the built-in policies.
func NewRegistry(catchUpSize int) *Registry {
	r := &Registry{policies: map[string]Policy{}}
	r.Register(Seed{})
	r.Register(CatchUp{Size: catchUpSize})
	return r
}

// Register adds or replaces a policy implementation.
func (r *Registry) Register(policy Policy) {
	if r.policies == nil {
		r.policies = map[string]Policy{}
	}
	r.policies[policy.Name()] = policy
}

// Resolve returns a policy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Policy, error) {
	if policy, ok := r.policies[name]; ok {
		return policy, nil
	}
	return nil, fmt.Errorf("first-run policy %q is not registered", name)
}
