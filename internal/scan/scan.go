// Package scan audits every artifact in a repository against the
// federation and streams findings to the output sinks.
package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"fedgate/internal/federation"
	"fedgate/internal/gate"
	"fedgate/internal/jfrog"
	"fedgate/internal/output"
	"fedgate/internal/policy"
	"fedgate/internal/scope"
	"fedgate/internal/search"
)

// Exit code contract:
// 0 = clean scan, no duplicates
// 1 = duplicates found under action "warn"
// 2 = duplicates found that would be blocked
// 3 = fatal error (scan did not run)
const (
	ExitClean   = 0
	ExitWarn    = 1
	ExitBlocked = 2
	ExitFatal   = 3
)

// Lister walks a repository's directory tree. *jfrog.Client satisfies it.
type Lister interface {
	ListFolder(ctx context.Context, repo, path string) ([]jfrog.Child, error)
}

type Scanner struct {
	source   gate.ConfigSource
	searcher *search.Searcher
	lister   Lister
	out      *output.Manager
	log      *zap.Logger
}

func NewScanner(source gate.ConfigSource, searcher *search.Searcher, lister Lister, out *output.Manager, log *zap.Logger) (*Scanner, error) {
	if source == nil || searcher == nil || lister == nil || out == nil {
		return nil, fmt.Errorf("scan: source, searcher, lister and output manager are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{source: source, searcher: searcher, lister: lister, out: out, log: log}, nil
}

// Run walks repoKey under pathPrefix and evaluates each artifact. The
// federation configuration is read once for the whole scan. Returns the
// exit code.
func (s *Scanner) Run(ctx context.Context, repoKey, pathPrefix string) int {
	cfg, diags := federation.Parse(s.source.Text(ctx))
	for _, d := range diags {
		s.log.Warn("federation configuration diagnostic",
			zap.String("path", d.Path), zap.String("reason", d.Reason))
	}

	files, err := s.walk(ctx, repoKey, strings.Trim(pathPrefix, "/"))
	if err != nil {
		s.log.Error("failed to list repository", zap.String("repo", repoKey), zap.Error(err))
		return ExitFatal
	}
	sort.Strings(files)

	_ = s.out.Write(output.Event{Type: "scan.started", Repo: repoKey, Artifacts: len(files)})

	var warns, stops int
	for _, file := range files {
		event := scope.UploadEvent{RepoKey: repoKey, Path: file}
		finding := s.evaluate(ctx, cfg, event)
		switch finding.Status {
		case policy.StatusWarn:
			warns++
		case policy.StatusStop:
			stops++
		}
		_ = s.out.Write(finding)
	}

	code := ExitClean
	if warns > 0 {
		code = ExitWarn
	}
	if stops > 0 {
		code = ExitBlocked
	}
	_ = s.out.Write(output.Event{Type: "scan.finished", Repo: repoKey, Artifacts: len(files), ExitCode: code})
	return code
}

func (s *Scanner) evaluate(ctx context.Context, cfg federation.Config, event scope.UploadEvent) output.Finding {
	finding := output.Finding{Repo: event.RepoKey, Path: event.Path}

	matches := scope.Resolve(cfg, event)
	if len(matches) == 0 {
		finding.Status = policy.StatusProceed
		finding.Message = "outside all configured federation scopes"
		return finding
	}

	result := s.searcher.Search(ctx, matches, event)
	decision := policy.Decide(result, cfg.Action)
	finding.Status = decision.Status
	finding.Message = decision.Message
	if result.Found {
		finding.Duplicate = &output.Duplicate{
			TargetURL: result.First.TargetURL,
			Repo:      result.First.Item.Repo,
			Path:      result.First.Item.FullPath(),
		}
	}
	return finding
}

// walk returns all file paths at or below root, slash-separated, without a
// leading slash.
func (s *Scanner) walk(ctx context.Context, repoKey, root string) ([]string, error) {
	children, err := s.lister.ListFolder(ctx, repoKey, root)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, c := range children {
		name := strings.Trim(c.URI, "/")
		if name == "" {
			continue
		}
		full := name
		if root != "" {
			full = root + "/" + name
		}
		if !c.Folder {
			files = append(files, full)
			continue
		}
		sub, err := s.walk(ctx, repoKey, full)
		if err != nil {
			return nil, err
		}
		files = append(files, sub...)
	}
	return files, nil
}
