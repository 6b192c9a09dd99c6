package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"fedgate/internal/federation"
	"fedgate/internal/jfrog"
	"fedgate/internal/output"
	"fedgate/internal/policy"
	"fedgate/internal/search"
)

type staticSource string

func (s staticSource) Text(ctx context.Context) string { return string(s) }

// fakeTree maps "repo/path" (path may be empty) to children.
type fakeTree map[string][]jfrog.Child

func (f fakeTree) ListFolder(ctx context.Context, repo, path string) ([]jfrog.Child, error) {
	key := repo
	if path != "" {
		key = repo + "/" + path
	}
	children, ok := f[key]
	if !ok {
		return nil, errors.New("no such folder: " + key)
	}
	return children, nil
}

type dupFinder struct {
	// duplicates holds file names that exist remotely.
	duplicates map[string]bool
}

func (d *dupFinder) Find(ctx context.Context, c jfrog.Criteria) ([]jfrog.Item, error) {
	if d.duplicates[c.Name] {
		return []jfrog.Item{{Repo: "remote-repo", Path: "immutable/x", Name: c.Name}}, nil
	}
	return nil, nil
}

func newScanner(t *testing.T, cfg string, finder search.Finder, tree fakeTree, sink output.Sink) *Scanner {
	t.Helper()
	factory := func(target federation.Target) (search.Finder, error) { return finder, nil }
	out := output.NewManager()
	if err := out.AddSink(sink); err != nil {
		t.Fatalf("AddSink: %v", err)
	}
	s, err := NewScanner(staticSource(cfg), search.NewSearcher(factory, 2, nil), tree, out, nil)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	return s
}

const scanConfig = `{"jpds":[{"url":"https://a.example.com","repos":[{"name":"remote-repo","paths":["immutable"]}]}],"action":"block"}`

func testTree() fakeTree {
	return fakeTree{
		"local": {
			{URI: "/immutable", Folder: true},
			{URI: "/readme.txt", Folder: false},
		},
		"local/immutable": {
			{URI: "/x", Folder: true},
		},
		"local/immutable/x": {
			{URI: "/dup.jar", Folder: false},
			{URI: "/unique.jar", Folder: false},
		},
	}
}

func TestScanFindsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewConsoleSink(&buf, "ndjson")
	finder := &dupFinder{duplicates: map[string]bool{"dup.jar": true}}

	s := newScanner(t, scanConfig, finder, testTree(), sink)
	code := s.Run(context.Background(), "local", "")
	if code != ExitBlocked {
		t.Errorf("exit code = %d, want %d", code, ExitBlocked)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// scan.started + 3 findings + scan.finished
	if len(lines) != 5 {
		t.Fatalf("events = %d, want 5:\n%s", len(lines), buf.String())
	}

	byPath := map[string]output.Event{}
	for _, line := range lines[1 : len(lines)-1] {
		var e output.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		byPath[e.Finding.Path] = e
	}

	if got := byPath["immutable/x/dup.jar"].Finding.Status; got != policy.StatusStop {
		t.Errorf("dup.jar status = %s, want STOP", got)
	}
	if d := byPath["immutable/x/dup.jar"].Finding.Duplicate; d == nil || d.TargetURL != "https://a.example.com" {
		t.Errorf("dup.jar duplicate = %+v", d)
	}
	if got := byPath["immutable/x/unique.jar"].Finding.Status; got != policy.StatusProceed {
		t.Errorf("unique.jar status = %s, want PROCEED", got)
	}
	// readme.txt sits outside the configured "immutable" root.
	if got := byPath["readme.txt"].Finding; got.Status != policy.StatusProceed || !strings.Contains(got.Message, "outside") {
		t.Errorf("readme.txt finding = %+v", got)
	}

	var last output.Event
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("last event: %v", err)
	}
	if last.Type != "scan.finished" || last.ExitCode != ExitBlocked || last.Artifacts != 3 {
		t.Errorf("scan.finished = %+v", last)
	}
}

func TestScanWarnAction(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewConsoleSink(&buf, "ndjson")
	cfg := strings.Replace(scanConfig, `"action":"block"`, `"action":"warn"`, 1)
	finder := &dupFinder{duplicates: map[string]bool{"dup.jar": true}}

	s := newScanner(t, cfg, finder, testTree(), sink)
	if code := s.Run(context.Background(), "local", ""); code != ExitWarn {
		t.Errorf("exit code = %d, want %d", code, ExitWarn)
	}
}

func TestScanClean(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewConsoleSink(&buf, "ndjson")
	s := newScanner(t, scanConfig, &dupFinder{}, testTree(), sink)
	if code := s.Run(context.Background(), "local", ""); code != ExitClean {
		t.Errorf("exit code = %d, want %d", code, ExitClean)
	}
}

func TestScanPrefix(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewConsoleSink(&buf, "ndjson")
	finder := &dupFinder{duplicates: map[string]bool{"dup.jar": true}}

	s := newScanner(t, scanConfig, finder, testTree(), sink)
	if code := s.Run(context.Background(), "local", "immutable/x"); code != ExitBlocked {
		t.Errorf("exit code = %d, want %d", code, ExitBlocked)
	}
	if strings.Contains(buf.String(), "readme.txt") {
		t.Errorf("prefix scan must not visit readme.txt:\n%s", buf.String())
	}
}

func TestScanListingFailureIsFatal(t *testing.T) {
	var buf bytes.Buffer
	sink := output.NewConsoleSink(&buf, "ndjson")
	s := newScanner(t, scanConfig, &dupFinder{}, fakeTree{}, sink)
	if code := s.Run(context.Background(), "local", ""); code != ExitFatal {
		t.Errorf("exit code = %d, want %d", code, ExitFatal)
	}
}
