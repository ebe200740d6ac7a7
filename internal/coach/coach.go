// Package coach defines the CoachAdapter contract: a pluggable bridge
// to an external advice provider. spec.md lists this as an
// interface-only Non-goal; this package supplements it with one
// concrete implementation (openai_adapter.go), grounded in
// edmundmiller-tasksh's internal/ai package, the only AI-integration
// code in the retrieved corpus.
package coach

import "context"

// Context is the study state handed to an Adapter alongside the
// user's message: enough for a coaching reply without leaking the
// whole domain model across the boundary.
type Context struct {
	UpcomingTasks    []TaskSummary
	RecentCompletion float64 // 0..1, from workload.CompletionRate
	Warnings         []string
}

// TaskSummary is the minimal task shape an Adapter needs to reference
// a task by name in its reply.
type TaskSummary struct {
	Title    string
	Subject  string
	Deadline string // formatted, empty if none
}

// Reply is an Adapter's answer to one chat turn.
type Reply struct {
	Message string
}

// Adapter is the contract to an external advice provider. The
// scheduling core never calls an Adapter; it is called only from the
// HTTP layer: the chat-proxy handler surfaces any error as a warning
// rather than a failed request, and the schedule-generate handler
// omits its optional explanation when the adapter fails.
type Adapter interface {
	Ask(ctx context.Context, userMessage string, studyCtx Context) (Reply, error)
}

// NoopAdapter is the zero-configuration default: it always fails,
// forcing callers to treat an absent provider the same way they'd
// treat a provider outage.
type NoopAdapter struct{}

func (NoopAdapter) Ask(ctx context.Context, userMessage string, studyCtx Context) (Reply, error) {
	return Reply{}, ErrNoProvider
}
