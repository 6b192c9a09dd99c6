// Package federation models the at-rest federation configuration: the set of
// remote platform deployments (JPDs) and repository scopes that must be
// searched before an upload is accepted.
package federation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Action values recognized by the policy engine. The field is free-form at
// rest; anything else is a configuration error handled at decision time.
const (
	ActionBlock = "block"
	ActionWarn  = "warn"
)

// DefaultAction is applied when the configuration is missing or unparsable.
// Fail-open on config problems: with no targets the scope resolves empty and
// uploads proceed.
const DefaultAction = ActionWarn

// RepoScope restricts a search on one target to a single repository and,
// optionally, to a set of path roots within it.
type RepoScope struct {
	// Name is the repository key on the remote target. Required.
	Name string

	// PathRoots limits the scope to directories at or below any of these
	// roots. Empty means the whole repository is in scope. Order is
	// preserved from the document.
	PathRoots []string
}

// Target is one remote platform deployment participating in the federation.
type Target struct {
	// URL identifies the deployment (base URL of its API). Required.
	URL string

	// Repos lists the repository scopes to search on this target, in
	// document order. Empty means "search the uploading repository's own
	// key with no path restriction".
	Repos []RepoScope
}

// Config is the normalized federation description.
type Config struct {
	Targets []Target

	// Action is the configured gating action ("block" or "warn"). Kept
	// verbatim; validation happens in the policy engine so that a broken
	// value can fail closed only when a duplicate is actually found.
	Action string
}

// Diagnostic records one entry dropped or defaulted during normalization.
// Parsing never fails the caller; diagnostics make the drops auditable.
type Diagnostic struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Path, d.Reason)
}

// rawConfig mirrors the at-rest document:
//
//	{"jpds":[{"url":"...","repos":["name", {"name":"...","paths":["..."]}]}],
//	 "action":"block"}
//
// Repo entries are a union of bare string and object, so they decode via
// json.RawMessage.
type rawConfig struct {
	JPDs   []rawTarget `json:"jpds"`
	Action string      `json:"action"`
}

type rawTarget struct {
	URL   string            `json:"url"`
	Repos []json.RawMessage `json:"repos"`
}

type rawRepo struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
}

// Parse converts raw configuration text into a normalized Config.
//
// It never returns an error: empty or unparsable input yields an empty target
// list with the default action, and malformed sub-entries (targets without a
// URL, repos without a name) are dropped. Every drop or default is reported
// in the diagnostics slice.
func Parse(raw string) (Config, []Diagnostic) {
	cfg := Config{Action: DefaultAction}
	var diags []Diagnostic

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		diags = append(diags, Diagnostic{Path: "$", Reason: "configuration is empty; using empty federation with action " + DefaultAction})
		return cfg, diags
	}

	var doc rawConfig
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		diags = append(diags, Diagnostic{Path: "$", Reason: fmt.Sprintf("configuration is not valid JSON (%v); using empty federation with action %s", err, DefaultAction)})
		return cfg, diags
	}

	if a := strings.TrimSpace(doc.Action); a != "" {
		cfg.Action = a
	} else {
		diags = append(diags, Diagnostic{Path: "$.action", Reason: "action missing; defaulting to " + DefaultAction})
	}

	for i, rt := range doc.JPDs {
		tPath := fmt.Sprintf("$.jpds[%d]", i)
		url := strings.TrimSpace(rt.URL)
		if url == "" {
			diags = append(diags, Diagnostic{Path: tPath, Reason: "target has no url; dropped"})
			continue
		}
		target := Target{URL: url}
		for j, rr := range rt.Repos {
			rPath := fmt.Sprintf("%s.repos[%d]", tPath, j)
			scope, diag := parseRepoEntry(rPath, rr)
			if diag != nil {
				diags = append(diags, *diag)
				continue
			}
			target.Repos = append(target.Repos, scope)
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, diags
}

// parseRepoEntry accepts either a bare repository name or an object with
// name + optional paths.
func parseRepoEntry(path string, raw json.RawMessage) (RepoScope, *Diagnostic) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		name = strings.TrimSpace(name)
		if name == "" {
			return RepoScope{}, &Diagnostic{Path: path, Reason: "repo name is empty; dropped"}
		}
		return RepoScope{Name: name}, nil
	}

	var obj rawRepo
	if err := json.Unmarshal(raw, &obj); err != nil {
		return RepoScope{}, &Diagnostic{Path: path, Reason: "repo entry is neither a string nor an object; dropped"}
	}
	obj.Name = strings.TrimSpace(obj.Name)
	if obj.Name == "" {
		return RepoScope{}, &Diagnostic{Path: path, Reason: "repo entry has no name; dropped"}
	}

	scope := RepoScope{Name: obj.Name}
	for _, p := range obj.Paths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" {
			continue
		}
		scope.PathRoots = append(scope.PathRoots, p)
	}
	return scope, nil
}
