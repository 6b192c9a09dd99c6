package jfrog

import (
	"strings"
	"testing"
)

func TestBuildAQL(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     string
		wantErr  bool
	}{
		{
			name:     "Single repo, exact dir, limit",
			criteria: Criteria{Repos: []string{"libs-release"}, Dir: "org/app", Name: "app.jar", Limit: 1},
			want:     `items.find({"$and":[{"repo":"libs-release"},{"path":"org/app"},{"name":"app.jar"}]}).include("repo","path","name").limit(1)`,
		},
		{
			name:     "Root dir maps to dot",
			criteria: Criteria{Repos: []string{"r"}, Name: "f.txt", Limit: 1},
			want:     `items.find({"$and":[{"repo":"r"},{"path":"."},{"name":"f.txt"}]}).include("repo","path","name").limit(1)`,
		},
		{
			name:     "Multi repo OR",
			criteria: Criteria{Repos: []string{"a", "b"}, Dir: "d", Name: "f"},
			want:     `items.find({"$and":[{"$or":[{"repo":"a"},{"repo":"b"}]},{"path":"d"},{"name":"f"}]}).include("repo","path","name")`,
		},
		{
			name:     "Single path root prefix",
			criteria: Criteria{Repos: []string{"r"}, PathRoots: []string{"immutable"}, Name: "f", Limit: 1},
			want:     `items.find({"$and":[{"repo":"r"},{"$or":[{"path":"immutable"},{"path":{"$match":"immutable/*"}}]},{"name":"f"}]}).include("repo","path","name").limit(1)`,
		},
		{
			name:     "Multi path root OR prefix",
			criteria: Criteria{Repos: []string{"r"}, PathRoots: []string{"a", "b/c"}, Name: "f"},
			want:     `items.find({"$and":[{"repo":"r"},{"$or":[{"$or":[{"path":"a"},{"path":{"$match":"a/*"}}]},{"$or":[{"path":"b/c"},{"path":{"$match":"b/c/*"}}]}]},{"name":"f"}]}).include("repo","path","name")`,
		},
		{
			name:     "No repos",
			criteria: Criteria{Name: "f"},
			wantErr:  true,
		},
		{
			name:     "No name",
			criteria: Criteria{Repos: []string{"r"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildAQL(tt.criteria)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildAQL: %v", err)
			}
			if got != tt.want {
				t.Errorf("query mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestItemFullPath(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{Item{Repo: "r", Path: "a/b", Name: "f.txt"}, "a/b/f.txt"},
		{Item{Repo: "r", Path: ".", Name: "f.txt"}, "f.txt"},
		{Item{Repo: "r", Path: "", Name: "f.txt"}, "f.txt"},
	}
	for _, tt := range tests {
		if got := tt.item.FullPath(); got != tt.want {
			t.Errorf("FullPath(%+v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

func TestBuildAQLQuotesSpecialCharacters(t *testing.T) {
	got, err := BuildAQL(Criteria{Repos: []string{"r"}, Dir: `we"ird`, Name: "f", Limit: 1})
	if err != nil {
		t.Fatalf("BuildAQL: %v", err)
	}
	if !strings.Contains(got, `we\"ird`) {
		t.Errorf("expected JSON-escaped path in query, got %s", got)
	}
}
