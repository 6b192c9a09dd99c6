package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// MAINTAINER NOTE: if you add/change/remove fields that affect gating
	// behavior, keep the CLI flags in internal/cli in sync.
	Platform Platform
	Runtime  Runtime
	Output   Output
}

type Platform struct {
	// URL is the base URL of the local platform deployment, e.g.
	// https://jpd.example.com/artifactory (see --url / FEDGATE_URL).
	URL string `env:"FEDGATE_URL"`

	// Token is the access token used for every deployment in the
	// federation (see FEDGATE_TOKEN). Empty means anonymous access.
	Token string `env:"FEDGATE_TOKEN"`

	// ConfigRepoPath locates the federation configuration document on the
	// local deployment as "repo/path.json" (see --config / FEDGATE_CONFIG).
	ConfigRepoPath string `env:"FEDGATE_CONFIG"`

	// ConfigFile reads the federation configuration from a local file
	// instead of the deployment (see --config-file). Takes precedence
	// over ConfigRepoPath.
	ConfigFile string `env:"-"`
}

type Runtime struct {
	// Concurrency bounds parallel existence queries (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the wall-clock budget for one gate evaluation or scan
	// (see --timeout). Must be > 0.
	Timeout time.Duration

	// Verbose enables per-request HTTP diagnostics and debug logging.
	Verbose bool
}

type Output struct {
	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, inferred from the extension.
	OutFormat string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

func New() *Config {
	return &Config{
		Runtime: Runtime{
			Concurrency: 5,
			Timeout:     2 * time.Minute,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
	}
}

// LoadEnv overlays FEDGATE_* environment variables onto the config. Flags
// applied afterwards win over the environment.
func (c *Config) LoadEnv() error {
	if err := env.Parse(&c.Platform); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Platform.URL != "" {
		u, err := url.Parse(c.Platform.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid platform URL %q (expected e.g. https://jpd.example.com/artifactory)", c.Platform.URL)
		}
		c.Platform.URL = strings.TrimRight(c.Platform.URL, "/")
	}

	if c.Platform.ConfigRepoPath != "" && !strings.Contains(strings.Trim(c.Platform.ConfigRepoPath, "/"), "/") {
		return fmt.Errorf("invalid --config value %q (expected repo/path.json)", c.Platform.ConfigRepoPath)
	}

	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
