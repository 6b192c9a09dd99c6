// Package scope computes which federation targets and repository scopes are
// relevant to a single upload.
package scope

import (
	"strings"

	"fedgate/internal/federation"
)

// UploadEvent identifies one artifact upload being gated.
type UploadEvent struct {
	// RepoKey is the repository the artifact is being uploaded into.
	RepoKey string `json:"repo_key"`

	// Path is the slash-separated artifact path within the repository,
	// with the file name as the last segment.
	Path string `json:"path"`
}

// Valid reports whether the event carries the required identity fields.
func (e UploadEvent) Valid() bool {
	return strings.TrimSpace(e.RepoKey) != "" && strings.TrimSpace(e.Path) != ""
}

// Dir returns the upload's directory: the path with the trailing file
// segment stripped, without leading or trailing slashes. An upload at the
// repository root has an empty directory.
func (e UploadEvent) Dir() string {
	p := strings.Trim(e.Path, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// FileName returns the last path segment.
func (e UploadEvent) FileName() string {
	p := strings.Trim(e.Path, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// Match is one (target, optional repo scope) pair that must be searched.
// A nil Repo means "search this target for the upload's own repository key
// with no path restriction".
type Match struct {
	Target federation.Target
	Repo   *federation.RepoScope
}

// Resolve returns the ordered matches for the upload, in configuration
// order. Targets may recur if duplicated in the configuration; that is
// caller input, not an error. An empty result means the upload is outside
// every configured search scope.
func Resolve(cfg federation.Config, event UploadEvent) []Match {
	dir := event.Dir()

	var matches []Match
	for _, target := range cfg.Targets {
		if len(target.Repos) == 0 {
			matches = append(matches, Match{Target: target})
			continue
		}
		for i := range target.Repos {
			repo := &target.Repos[i]
			if len(repo.PathRoots) == 0 {
				matches = append(matches, Match{Target: target, Repo: repo})
				continue
			}
			if dirWithinAny(dir, repo.PathRoots) {
				matches = append(matches, Match{Target: target, Repo: repo})
			}
		}
	}
	return matches
}

// dirWithinAny reports whether dir equals any root or sits below one.
func dirWithinAny(dir string, roots []string) bool {
	for _, root := range roots {
		if DirWithin(dir, root) {
			return true
		}
	}
	return false
}

// DirWithin is the boundary-safe prefix rule: dir is within root iff it
// equals root or starts with root + "/". "foo/ba" is not within "foo/bar",
// and "immutable2" is not within "immutable".
func DirWithin(dir, root string) bool {
	return dir == root || strings.HasPrefix(dir, root+"/")
}
