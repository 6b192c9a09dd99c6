// Package search fans existence queries out across the federation and
// aggregates the first confirmed duplicate.
package search

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fedgate/internal/federation"
	"fedgate/internal/jfrog"
	"fedgate/internal/scope"
)

// Finder is the existence-query capability of one federation target.
// *jfrog.Client satisfies it.
type Finder interface {
	Find(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error)
}

// FinderFactory returns the Finder for a target. Called once per scope
// match; errors disable that match only (counted as "no match").
type FinderFactory func(target federation.Target) (Finder, error)

// Hit is a confirmed duplicate on one target.
type Hit struct {
	TargetURL string
	Item      jfrog.Item
}

// Result is the aggregate outcome of one federated search. First is the
// hit whose completion reached the aggregator first; it is nil iff Found
// is false.
type Result struct {
	Found bool
	First *Hit
}

type Searcher struct {
	finders     FinderFactory
	concurrency int
	log         *zap.Logger
}

func NewSearcher(finders FinderFactory, concurrency int, log *zap.Logger) *Searcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{finders: finders, concurrency: concurrency, log: log}
}

// Search runs one existence query per scope match, in parallel, and waits
// for every query to finish.
//
// Aggregation is a first-write-wins atomic cell: the task whose completion
// lands the CompareAndSwap first owns the recorded match. The cell doubles
// as the pre-call guard — a match found elsewhere skips queries that have
// not started yet, but never aborts one in flight. Per-target errors are
// logged and counted as "no match" for that scope only (fail-open: an
// unreachable target must not block uploads).
func (s *Searcher) Search(ctx context.Context, matches []scope.Match, event scope.UploadEvent) Result {
	if len(matches) == 0 {
		return Result{}
	}

	var first atomic.Pointer[Hit]

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, m := range matches {
		g.Go(func() error {
			if first.Load() != nil {
				s.log.Debug("skipping search, duplicate already found",
					zap.String("target", m.Target.URL))
				return nil
			}

			finder, err := s.finders(m.Target)
			if err != nil {
				s.log.Warn("target unavailable, counting as no match",
					zap.String("target", m.Target.URL), zap.Error(err))
				return nil
			}

			items, err := finder.Find(ctx, criteriaFor(m, event))
			if err != nil {
				s.log.Warn("search failed, counting as no match",
					zap.String("target", m.Target.URL), zap.Error(err))
				return nil
			}
			if len(items) > 0 {
				first.CompareAndSwap(nil, &Hit{TargetURL: m.Target.URL, Item: items[0]})
			}
			return nil
		})
	}
	_ = g.Wait()

	hit := first.Load()
	return Result{Found: hit != nil, First: hit}
}

// criteriaFor builds the existence filter for one scope match: the scope's
// repository (or the upload's own key when the match carries none), the
// scope's path roots (or the upload's own directory), and an exact file
// name, capped at one result.
func criteriaFor(m scope.Match, event scope.UploadEvent) jfrog.Criteria {
	c := jfrog.Criteria{
		Name:  event.FileName(),
		Limit: 1,
	}
	if m.Repo != nil {
		c.Repos = []string{m.Repo.Name}
		if len(m.Repo.PathRoots) > 0 {
			c.PathRoots = m.Repo.PathRoots
		} else {
			c.Dir = event.Dir()
		}
	} else {
		c.Repos = []string{event.RepoKey}
		c.Dir = event.Dir()
	}
	return c
}
