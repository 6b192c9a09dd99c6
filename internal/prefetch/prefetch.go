// Package prefetch pulls copies of federation artifacts into a local
// directory ahead of need, so gate lookups and promotions hit warm storage.
package prefetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"fedgate/internal/federation"
	"fedgate/internal/jfrog"
)

// Client is the subset of the platform client prefetching needs.
// *jfrog.Client satisfies it.
type Client interface {
	ListFolder(ctx context.Context, repo, path string) ([]jfrog.Child, error)
	Download(ctx context.Context, repo, path string, w io.Writer) (int64, error)
}

// ClientFactory returns the client for one federation target.
type ClientFactory func(target federation.Target) (Client, error)

type Prefetcher struct {
	clients ClientFactory
	dest    string
	log     *zap.Logger
}

func New(clients ClientFactory, dest string, log *zap.Logger) (*Prefetcher, error) {
	if clients == nil {
		return nil, fmt.Errorf("prefetch: client factory is required")
	}
	if dest == "" {
		return nil, fmt.Errorf("prefetch: destination directory is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prefetcher{clients: clients, dest: dest, log: log}, nil
}

// Run walks every federation target and downloads artifacts under
// repoKey/prefix that are not present locally yet. Files are laid out as
// dest/<repo>/<path>. Per-target failures are logged and skipped; the
// first target that has an artifact wins. Returns the number of files
// fetched.
func (p *Prefetcher) Run(ctx context.Context, cfg federation.Config, repoKey, prefix string) (int, error) {
	if strings.TrimSpace(repoKey) == "" {
		return 0, fmt.Errorf("prefetch: repository key is required")
	}
	prefix = strings.Trim(prefix, "/")

	fetched := 0
	for _, target := range cfg.Targets {
		client, err := p.clients(target)
		if err != nil {
			p.log.Warn("target unavailable, skipping",
				zap.String("target", target.URL), zap.Error(err))
			continue
		}
		for _, repo := range targetRepos(target, repoKey) {
			n, err := p.pullTree(ctx, client, repo, prefix)
			fetched += n
			if err != nil {
				p.log.Warn("prefetch from target failed",
					zap.String("target", target.URL), zap.String("repo", repo), zap.Error(err))
			}
		}
	}
	return fetched, nil
}

// targetRepos lists the repository keys to pull from one target: its
// configured scopes, or the local upload repository when it has none.
func targetRepos(target federation.Target, repoKey string) []string {
	if len(target.Repos) == 0 {
		return []string{repoKey}
	}
	repos := make([]string, 0, len(target.Repos))
	for _, r := range target.Repos {
		repos = append(repos, r.Name)
	}
	return repos
}

func (p *Prefetcher) pullTree(ctx context.Context, client Client, repo, path string) (int, error) {
	children, err := client.ListFolder(ctx, repo, path)
	if err != nil {
		return 0, err
	}

	fetched := 0
	for _, c := range children {
		name := strings.Trim(c.URI, "/")
		if name == "" {
			continue
		}
		full := name
		if path != "" {
			full = path + "/" + name
		}
		if c.Folder {
			n, err := p.pullTree(ctx, client, repo, full)
			fetched += n
			if err != nil {
				return fetched, err
			}
			continue
		}
		ok, err := p.pullFile(ctx, client, repo, full)
		if err != nil {
			return fetched, err
		}
		if ok {
			fetched++
		}
	}
	return fetched, nil
}

// pullFile downloads repo/path unless it is already present locally.
func (p *Prefetcher) pullFile(ctx context.Context, client Client, repo, path string) (bool, error) {
	local := filepath.Join(p.dest, repo, filepath.FromSlash(path))
	if _, err := os.Stat(local); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return false, err
	}

	f, err := os.Create(local)
	if err != nil {
		return false, err
	}
	n, err := client.Download(ctx, repo, path, f)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(local)
		return false, err
	}
	p.log.Debug("prefetched artifact",
		zap.String("repo", repo), zap.String("path", path), zap.Int64("bytes", n))
	return true, nil
}
