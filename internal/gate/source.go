package gate

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
)

// contentFetcher is the subset of the platform client used to read the
// configuration document. *jfrog.Client satisfies it.
type contentFetcher interface {
	FileContent(ctx context.Context, repo, path string) (string, error)
}

// RemoteConfigSource reads the federation configuration from a repo path on
// the local deployment. Any failure is logged and reported as empty text.
type RemoteConfigSource struct {
	Client contentFetcher
	Repo   string
	Path   string
	Log    *zap.Logger
}

func (s *RemoteConfigSource) Text(ctx context.Context) string {
	text, err := s.Client.FileContent(ctx, s.Repo, s.Path)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("failed to read federation configuration, treating as empty",
				zap.String("repo", s.Repo), zap.String("path", s.Path), zap.Error(err))
		}
		return ""
	}
	return text
}

// FileConfigSource reads the federation configuration from a local file,
// useful for development and tests. Missing or unreadable files are empty.
type FileConfigSource struct {
	Path string
	Log  *zap.Logger
}

func (s *FileConfigSource) Text(ctx context.Context) string {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("failed to read federation configuration file, treating as empty",
				zap.String("file", s.Path), zap.Error(err))
		}
		return ""
	}
	return string(b)
}

// SplitRepoPath splits "repo/dir/file.json" into its repository key and the
// path within it.
func SplitRepoPath(s string) (repo, path string, ok bool) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	repo, path, ok = strings.Cut(s, "/")
	if !ok || repo == "" || path == "" {
		return "", "", false
	}
	return repo, path, true
}
