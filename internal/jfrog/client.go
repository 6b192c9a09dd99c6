// Package jfrog is a minimal HTTP client for a JFrog-style platform
// deployment: AQL item search, raw file content, folder listing, and
// artifact download.
package jfrog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Item is one artifact returned by an AQL search.
type Item struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// FullPath joins the item's directory and file name, normalizing the AQL
// repository-root directory ".".
func (it Item) FullPath() string {
	if it.Path == "" || it.Path == "." {
		return it.Name
	}
	return it.Path + "/" + it.Name
}

// Child is one entry of a folder listing.
type Child struct {
	URI    string `json:"uri"`
	Folder bool   `json:"folder"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type options struct {
	verbose bool
	// writer controls where verbose HTTP logs are written (typically
	// stderr) so structured output on stdout stays clean and tests can
	// capture logs.
	writer  io.Writer
	timeout time.Duration
}

type Option func(*options)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base http.RoundTripper
	w    io.Writer
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.w != nil {
		_, _ = fmt.Fprintf(t.w, "[verbose] jpd api: %s %s\n", req.Method, req.URL.String())
	}
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start)
	if t.w != nil {
		if err != nil {
			_, _ = fmt.Fprintf(t.w, "[verbose] jpd api: error after %s: %v\n", dur.Truncate(time.Millisecond), err)
		} else {
			_, _ = fmt.Fprintf(t.w, "[verbose] jpd api: %d %s (%s)\n", resp.StatusCode, http.StatusText(resp.StatusCode), dur.Truncate(time.Millisecond))
		}
	}
	return resp, err
}

// NewClient builds a client for the deployment at baseURL. An empty token
// yields an unauthenticated client (anonymous access may still work for
// open repositories).
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("jfrog client: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("jfrog client: invalid base URL %q: %w", baseURL, err)
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, w: o.writer}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Transport: transport, Timeout: o.timeout},
	}, nil
}

// BaseURL returns the deployment's base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SearchAQL submits an AQL query and returns the matched items in the order
// the backend reports them.
func (c *Client) SearchAQL(ctx context.Context, query string) ([]Item, error) {
	if ctx == nil {
		return nil, fmt.Errorf("SearchAQL: nil context")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/search/aql", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("SearchAQL: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SearchAQL: %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("SearchAQL: %s returned %d %s", c.baseURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var body struct {
		Results []Item `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("SearchAQL: decode response from %s: %w", c.baseURL, err)
	}
	return body.Results, nil
}

// Find renders the criteria to AQL and runs the search.
func (c *Client) Find(ctx context.Context, crit Criteria) ([]Item, error) {
	query, err := BuildAQL(crit)
	if err != nil {
		return nil, err
	}
	return c.SearchAQL(ctx, query)
}

// FileContent fetches the raw content of repo/path. Callers that use this
// as a configuration store must treat errors as "empty content".
func (c *Client) FileContent(ctx context.Context, repo, path string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("FileContent: nil context")
	}
	u := c.baseURL + "/" + url.PathEscape(repo) + "/" + escapePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("FileContent: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("FileContent: %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("FileContent: %s returned %d %s", u, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("FileContent: read %s: %w", u, err)
	}
	return string(b), nil
}

// ListFolder returns the direct children of repo/path via the storage API.
// path "" lists the repository root.
func (c *Client) ListFolder(ctx context.Context, repo, path string) ([]Child, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ListFolder: nil context")
	}
	u := c.baseURL + "/api/storage/" + url.PathEscape(repo)
	if path != "" {
		u += "/" + escapePath(path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ListFolder: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ListFolder: %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ListFolder: %s returned %d %s", u, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	var body struct {
		Children []Child `json:"children"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ListFolder: decode response from %s: %w", u, err)
	}
	return body.Children, nil
}

// Download streams repo/path into w and returns the number of bytes copied.
func (c *Client) Download(ctx context.Context, repo, path string, w io.Writer) (int64, error) {
	if ctx == nil {
		return 0, fmt.Errorf("Download: nil context")
	}
	u := c.baseURL + "/" + url.PathEscape(repo) + "/" + escapePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("Download: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("Download: %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("Download: %s returned %d %s", u, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("Download: copy %s: %w", u, err)
	}
	return n, nil
}

// escapePath escapes each path segment but keeps the slashes.
func escapePath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
