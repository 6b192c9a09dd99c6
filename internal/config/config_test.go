package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := New()
	if c.Runtime.Concurrency != 5 {
		t.Errorf("default concurrency = %d, want 5", c.Runtime.Concurrency)
	}
	if c.Runtime.Timeout != 2*time.Minute {
		t.Errorf("default timeout = %s, want 2m", c.Runtime.Timeout)
	}
	if c.Output.ConsoleFormat != "text" {
		t.Errorf("default console format = %q, want text", c.Output.ConsoleFormat)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FEDGATE_URL", "https://jpd.example.com/artifactory")
	t.Setenv("FEDGATE_TOKEN", "secret")
	t.Setenv("FEDGATE_CONFIG", "conf-repo/gate/federation.json")

	c := New()
	if err := c.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if c.Platform.URL != "https://jpd.example.com/artifactory" {
		t.Errorf("URL = %q", c.Platform.URL)
	}
	if c.Platform.Token != "secret" {
		t.Errorf("Token = %q", c.Platform.Token)
	}
	if c.Platform.ConfigRepoPath != "conf-repo/gate/federation.json" {
		t.Errorf("ConfigRepoPath = %q", c.Platform.ConfigRepoPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid with platform URL",
			mutate: func(c *Config) { c.Platform.URL = "https://jpd.example.com/artifactory/" },
		},
		{
			name:    "Bad platform URL",
			mutate:  func(c *Config) { c.Platform.URL = "not a url" },
			wantErr: "invalid platform URL",
		},
		{
			name:    "Config path without repo",
			mutate:  func(c *Config) { c.Platform.ConfigRepoPath = "justafile.json" },
			wantErr: "expected repo/path.json",
		},
		{
			name:    "Zero concurrency",
			mutate:  func(c *Config) { c.Runtime.Concurrency = 0 },
			wantErr: "--concurrency",
		},
		{
			name:    "Zero timeout",
			mutate:  func(c *Config) { c.Runtime.Timeout = 0 },
			wantErr: "--timeout",
		},
		{
			name:    "Bad console format",
			mutate:  func(c *Config) { c.Output.ConsoleFormat = "yaml" },
			wantErr: "--console-format",
		},
		{
			name:   "Out format inferred from extension",
			mutate: func(c *Config) { c.Output.Out = "findings.ndjson" },
		},
		{
			name:    "Out format not inferable",
			mutate:  func(c *Config) { c.Output.Out = "findings.txt" },
			wantErr: "cannot infer output format",
		},
		{
			name: "Explicit out format",
			mutate: func(c *Config) {
				c.Output.Out = "findings.dat"
				c.Output.OutFormat = "JSON"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	c := New()
	c.Platform.URL = "https://jpd.example.com/artifactory///"
	c.Output.ConsoleFormat = " TEXT "
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Platform.URL != "https://jpd.example.com/artifactory" {
		t.Errorf("URL not normalized: %q", c.Platform.URL)
	}
	if c.Output.ConsoleFormat != "text" {
		t.Errorf("console format not normalized: %q", c.Output.ConsoleFormat)
	}
}
