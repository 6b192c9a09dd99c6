package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fedgate/internal/federation"
	"fedgate/internal/jfrog"
	"fedgate/internal/scope"
)

type fakeFinder struct {
	mu    sync.Mutex
	calls []jfrog.Criteria
	delay time.Duration
	items []jfrog.Item
	err   error
}

func (f *fakeFinder) Find(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func factoryFor(finders map[string]*fakeFinder) FinderFactory {
	return func(t federation.Target) (Finder, error) {
		f, ok := finders[t.URL]
		if !ok {
			return nil, errors.New("no finder for " + t.URL)
		}
		return f, nil
	}
}

func matchFor(url string) scope.Match {
	return scope.Match{Target: federation.Target{URL: url}}
}

func TestSearchEmptyMatches(t *testing.T) {
	s := NewSearcher(factoryFor(nil), 4, nil)
	res := s.Search(context.Background(), nil, scope.UploadEvent{RepoKey: "r", Path: "f"})
	if res.Found || res.First != nil {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearchFindsFirstCompletion(t *testing.T) {
	// The slow target is already in flight when the fast one reports its
	// hit: it must still run to completion (in-flight calls are never
	// aborted), and the fast completion owns the recorded match.
	slowStarted := make(chan struct{})
	var slowCalls atomic.Int32

	finders := map[string]Finder{
		"fast": finderFunc(func(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
			<-slowStarted
			return []jfrog.Item{{Repo: "r", Path: "a", Name: "f.txt"}}, nil
		}),
		"slow": finderFunc(func(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
			slowCalls.Add(1)
			close(slowStarted)
			time.Sleep(50 * time.Millisecond)
			return nil, nil
		}),
	}
	factory := func(tg federation.Target) (Finder, error) { return finders[tg.URL], nil }
	s := NewSearcher(factory, 4, nil)

	res := s.Search(context.Background(), []scope.Match{matchFor("slow"), matchFor("fast")}, scope.UploadEvent{RepoKey: "r", Path: "a/f.txt"})
	if !res.Found {
		t.Fatal("expected a duplicate to be found")
	}
	if res.First.TargetURL != "fast" {
		t.Errorf("first recorded match = %q, want the first completion (fast)", res.First.TargetURL)
	}
	if n := slowCalls.Load(); n != 1 {
		t.Errorf("slow target calls = %d, want 1", n)
	}
}

func TestSearchErrorIsFailOpen(t *testing.T) {
	finders := map[string]*fakeFinder{
		"broken": {err: errors.New("transport down")},
		"clean":  {},
	}
	s := NewSearcher(factoryFor(finders), 2, nil)
	res := s.Search(context.Background(), []scope.Match{matchFor("broken"), matchFor("clean")}, scope.UploadEvent{RepoKey: "r", Path: "f"})
	if res.Found {
		t.Errorf("per-target error must count as no match, got %+v", res)
	}
}

func TestSearchFactoryErrorDisablesOnlyThatTarget(t *testing.T) {
	finders := map[string]*fakeFinder{
		"ok": {items: []jfrog.Item{{Repo: "r", Path: "x", Name: "f"}}},
	}
	s := NewSearcher(factoryFor(finders), 2, nil)
	res := s.Search(context.Background(), []scope.Match{matchFor("missing"), matchFor("ok")}, scope.UploadEvent{RepoKey: "r", Path: "f"})
	if !res.Found || res.First.TargetURL != "ok" {
		t.Errorf("expected hit from healthy target, got %+v", res)
	}
}

func TestSearchSkipsQueuedCallsAfterHit(t *testing.T) {
	// Concurrency 1 serializes the matches; once the first reports a hit,
	// the remaining ones must be skipped before their calls are issued.
	hit := &fakeFinder{items: []jfrog.Item{{Repo: "r", Path: "x", Name: "f"}}}
	later := &fakeFinder{}
	finders := map[string]*fakeFinder{"hit": hit, "later": later}

	s := NewSearcher(factoryFor(finders), 1, nil)
	matches := []scope.Match{matchFor("hit"), matchFor("later"), matchFor("later")}
	res := s.Search(context.Background(), matches, scope.UploadEvent{RepoKey: "r", Path: "f"})
	if !res.Found {
		t.Fatal("expected a duplicate to be found")
	}
	if n := later.callCount(); n != 0 {
		t.Errorf("later target calls = %d, want 0 (pre-call skip guard)", n)
	}
}

func TestCriteriaFor(t *testing.T) {
	event := scope.UploadEvent{RepoKey: "local-repo", Path: "dir/sub/f.txt"}

	tests := []struct {
		name  string
		match scope.Match
		want  jfrog.Criteria
	}{
		{
			name:  "No repo scope uses the upload's own repo and dir",
			match: matchFor("t"),
			want:  jfrog.Criteria{Repos: []string{"local-repo"}, Dir: "dir/sub", Name: "f.txt", Limit: 1},
		},
		{
			name: "Repo scope without roots uses the upload's dir",
			match: scope.Match{
				Target: federation.Target{URL: "t"},
				Repo:   &federation.RepoScope{Name: "remote-repo"},
			},
			want: jfrog.Criteria{Repos: []string{"remote-repo"}, Dir: "dir/sub", Name: "f.txt", Limit: 1},
		},
		{
			name: "Repo scope with roots uses the roots",
			match: scope.Match{
				Target: federation.Target{URL: "t"},
				Repo:   &federation.RepoScope{Name: "remote-repo", PathRoots: []string{"dir"}},
			},
			want: jfrog.Criteria{Repos: []string{"remote-repo"}, PathRoots: []string{"dir"}, Name: "f.txt", Limit: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := criteriaFor(tt.match, event)
			if got.Name != tt.want.Name || got.Dir != tt.want.Dir || got.Limit != tt.want.Limit {
				t.Errorf("criteria = %+v, want %+v", got, tt.want)
			}
			if len(got.Repos) != 1 || got.Repos[0] != tt.want.Repos[0] {
				t.Errorf("repos = %v, want %v", got.Repos, tt.want.Repos)
			}
			if len(got.PathRoots) != len(tt.want.PathRoots) {
				t.Errorf("path roots = %v, want %v", got.PathRoots, tt.want.PathRoots)
			}
		})
	}
}

func TestSearchConcurrencyBounded(t *testing.T) {
	var active, peak atomic.Int32
	finder := &fakeFinder{}
	// Wrap the factory to track concurrent Find calls.
	factory := func(tg federation.Target) (Finder, error) {
		return finderFunc(func(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return finder.Find(ctx, c)
		}), nil
	}

	s := NewSearcher(factory, 2, nil)
	matches := make([]scope.Match, 6)
	for i := range matches {
		matches[i] = matchFor("t")
	}
	s.Search(context.Background(), matches, scope.UploadEvent{RepoKey: "r", Path: "f"})
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrent searches = %d, want <= 2", p)
	}
}

type finderFunc func(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error)

func (f finderFunc) Find(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
	return f(ctx, c)
}
