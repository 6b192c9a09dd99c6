package output

import "fedgate/internal/policy"

// Finding is one gate evaluation result for an artifact, as emitted to the
// output sinks during a scan or a single check.
type Finding struct {
	Repo    string        `json:"repo"`
	Path    string        `json:"path"`
	Status  policy.Status `json:"status"`
	Message string        `json:"message,omitempty"`

	// Duplicate locates the first recorded match when Status is STOP or
	// WARN.
	Duplicate *Duplicate `json:"duplicate,omitempty"`
}

// Duplicate is where a matching artifact was found in the federation.
type Duplicate struct {
	TargetURL string `json:"target_url"`
	Repo      string `json:"repo"`
	Path      string `json:"path"`
}

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - scan.started
// - finding
// - scan.finished
//
// JSON mode remains an aggregate of Finding values.
type Event struct {
	Type string `json:"type"`
	Repo string `json:"repo,omitempty"`
	*Finding
	Artifacts int `json:"artifacts,omitempty"`
	ExitCode  int `json:"exit_code,omitempty"`
}

func eventFromFinding(f Finding) Event {
	return Event{Type: "finding", Repo: f.Repo, Finding: &f}
}
