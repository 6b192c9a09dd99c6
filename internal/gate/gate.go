// Package gate sequences one upload-gating evaluation: load configuration,
// resolve scope, search the federation, decide.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fedgate/internal/federation"
	"fedgate/internal/policy"
	"fedgate/internal/scope"
	"fedgate/internal/search"
)

// ConfigSource supplies the raw federation configuration text. Implementations
// must swallow their own failures and return empty text; a broken store never
// fails a gate evaluation.
type ConfigSource interface {
	Text(ctx context.Context) string
}

// Response is the upload gate contract. Headers is always non-nil and empty
// here; it is reserved for collaborators that annotate responses.
type Response struct {
	Status   policy.Status     `json:"status"`
	Message  string            `json:"message"`
	Identity scope.UploadEvent `json:"identity"`
	Headers  map[string]string `json:"headers"`
}

type Gate struct {
	source   ConfigSource
	searcher *search.Searcher
	log      *zap.Logger
}

func New(source ConfigSource, searcher *search.Searcher, log *zap.Logger) (*Gate, error) {
	if source == nil {
		return nil, fmt.Errorf("gate: config source is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("gate: searcher is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{source: source, searcher: searcher, log: log}, nil
}

// Check evaluates one upload event and always resolves to a Response; it
// never panics out. An unexpected internal failure becomes a STOP decision
// carrying the failure text.
//
// The federation configuration is re-read on every call, intentionally: the
// next evaluation always sees the latest configuration.
func (g *Gate) Check(ctx context.Context, event scope.UploadEvent) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("gate evaluation failed", zap.Any("panic", r))
			resp = g.respond(event, policy.Decision{
				Status:  policy.StatusStop,
				Message: fmt.Sprintf("internal error while gating upload: %v", r),
			})
		}
	}()

	if !event.Valid() {
		return g.respond(event, policy.Decision{
			Status:  policy.StatusStop,
			Message: "upload repository key and path are required",
		})
	}

	raw := g.source.Text(ctx)
	cfg, diags := federation.Parse(raw)
	for _, d := range diags {
		g.log.Warn("federation configuration diagnostic",
			zap.String("path", d.Path), zap.String("reason", d.Reason))
	}

	matches := scope.Resolve(cfg, event)
	if len(matches) == 0 {
		// Fast path: outside every configured scope, no remote calls.
		g.log.Debug("upload outside all configured scopes",
			zap.String("repo", event.RepoKey), zap.String("path", event.Path))
		return g.respond(event, policy.Decision{
			Status:  policy.StatusProceed,
			Message: "upload is outside all configured federation scopes; no duplicates to check",
		})
	}

	result := g.searcher.Search(ctx, matches, event)
	decision := policy.Decide(result, cfg.Action)
	g.log.Info("gate decision",
		zap.String("repo", event.RepoKey),
		zap.String("path", event.Path),
		zap.Int("scopes", len(matches)),
		zap.Bool("found", result.Found),
		zap.String("status", string(decision.Status)))
	return g.respond(event, decision)
}

func (g *Gate) respond(event scope.UploadEvent, d policy.Decision) Response {
	return Response{
		Status:   d.Status,
		Message:  d.Message,
		Identity: event,
		Headers:  map[string]string{},
	}
}
