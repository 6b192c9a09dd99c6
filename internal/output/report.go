package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"fedgate/internal/policy"
)

// ReportSink accumulates findings and writes a Markdown summary on Close.
type ReportSink struct {
	path      string
	file      *os.File
	mu        sync.Mutex
	findings  []Finding
	repos     map[string]struct{}
	artifacts int
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path:  path,
		file:  f,
		repos: make(map[string]struct{}),
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Finding:
		s.findings = append(s.findings, t)
		if t.Repo != "" {
			s.repos[t.Repo] = struct{}{}
		}
	case Event:
		if t.Repo != "" {
			s.repos[t.Repo] = struct{}{}
		}
		if t.Type == "scan.finished" && t.Artifacts > 0 {
			s.artifacts = t.Artifacts
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var proceed, warn, stop []Finding
	for _, f := range s.findings {
		switch f.Status {
		case policy.StatusProceed:
			proceed = append(proceed, f)
		case policy.StatusWarn:
			warn = append(warn, f)
		case policy.StatusStop:
			stop = append(stop, f)
		}
	}

	var repos []string
	for r := range s.repos {
		repos = append(repos, r)
	}
	sort.Strings(repos)

	artifacts := s.artifacts
	if artifacts == 0 {
		artifacts = len(s.findings)
	}

	var b strings.Builder
	b.WriteString("# Fedgate Duplicate Report\n\n")
	fmt.Fprintf(&b, "Checked %d artifacts in %d repositories against the federation.\n\n", artifacts, len(repos))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Outcome | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Unique (PROCEED) | %d |\n", len(proceed))
	fmt.Fprintf(&b, "| Duplicate, warned (WARN) | %d |\n", len(warn))
	fmt.Fprintf(&b, "| Duplicate, blocked (STOP) | %d |\n\n", len(stop))

	writeSection := func(title string, findings []Finding) {
		if len(findings) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		b.WriteString("| Artifact | Duplicate location |\n|---|---|\n")
		for _, f := range findings {
			loc := "-"
			if f.Duplicate != nil {
				loc = fmt.Sprintf("%s : %s/%s", f.Duplicate.TargetURL, f.Duplicate.Repo, f.Duplicate.Path)
			}
			fmt.Fprintf(&b, "| `%s/%s` | %s |\n", f.Repo, f.Path, loc)
		}
		b.WriteString("\n")
	}
	writeSection("Blocked uploads", stop)
	writeSection("Warnings", warn)

	if len(stop) == 0 && len(warn) == 0 {
		b.WriteString("No duplicates found.\n")
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
