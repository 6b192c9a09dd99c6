package jfrog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Criteria is a structured existence filter rendered into an AQL
// items.find(...) query. The query language itself is a backend capability;
// callers only describe what to match.
type Criteria struct {
	// Repos restricts matches to any of these repository keys. At least
	// one is required.
	Repos []string

	// PathRoots, when set, matches items whose directory equals a root or
	// sits below it (boundary-safe: "foo/ba" never matches root "foo/bar").
	PathRoots []string

	// Dir, when PathRoots is empty, matches items in exactly this
	// directory. Empty means the repository root.
	Dir string

	// Name is the exact artifact file name to match. Required.
	Name string

	// Limit caps the number of returned items. 0 means no limit clause.
	Limit int
}

// BuildAQL renders the criteria as an AQL query string, e.g.
//
//	items.find({"$and":[{"repo":"r"},{"path":"a/b"},{"name":"f.txt"}]}).include("repo","path","name").limit(1)
func BuildAQL(c Criteria) (string, error) {
	if len(c.Repos) == 0 {
		return "", fmt.Errorf("aql: at least one repository is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return "", fmt.Errorf("aql: artifact name is required")
	}

	var and []any
	and = append(and, orClauses(c.Repos, func(repo string) any {
		return map[string]any{"repo": repo}
	}))

	if len(c.PathRoots) > 0 {
		and = append(and, orClauses(c.PathRoots, func(root string) any {
			// Equal to the root itself, or anything below it. The "/*"
			// suffix keeps the prefix match on a path-segment boundary.
			return map[string]any{"$or": []any{
				map[string]any{"path": root},
				map[string]any{"path": map[string]any{"$match": root + "/*"}},
			}}
		}))
	} else {
		and = append(and, map[string]any{"path": dirOrRoot(c.Dir)})
	}

	and = append(and, map[string]any{"name": c.Name})

	body, err := json.Marshal(map[string]any{"$and": and})
	if err != nil {
		return "", fmt.Errorf("aql: marshal criteria: %w", err)
	}

	var b strings.Builder
	b.WriteString("items.find(")
	b.Write(body)
	b.WriteString(`).include("repo","path","name")`)
	if c.Limit > 0 {
		fmt.Fprintf(&b, ".limit(%d)", c.Limit)
	}
	return b.String(), nil
}

// orClauses collapses a single value to its bare clause and wraps multiple
// values in an $or.
func orClauses(values []string, clause func(string) any) any {
	if len(values) == 1 {
		return clause(values[0])
	}
	or := make([]any, 0, len(values))
	for _, v := range values {
		or = append(or, clause(v))
	}
	return map[string]any{"$or": or}
}

// dirOrRoot maps the empty directory to AQL's repository-root path ".".
func dirOrRoot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
