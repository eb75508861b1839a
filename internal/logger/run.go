package logger

import (
	"context"
	"strconv"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type runKey struct{}

// RunInfo identifies one reconciler run for log correlation and Sentry tags
type RunInfo struct {
	RunID   string
	Command string
	DryRun  bool
}

// Fields returns the zap fields describing the run
func (r RunInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("run_id", r.RunID),
		zap.String("command", r.Command),
		zap.Bool("dry_run", r.DryRun),
	}
}

// WithRun returns a context carrying the run info.
// When Sentry is configured the context also gets its own hub tagged with the run.
func WithRun(ctx context.Context, info RunInfo) context.Context {
	ctx = context.WithValue(ctx, runKey{}, info)
	if sentryClient == nil {
		return ctx
	}

	hub := sentry.CurrentHub().Clone()
	hub.BindClient(sentryClient)
	hub.Scope().SetTags(map[string]string{
		"run_id":  info.RunID,
		"command": info.Command,
		"dry_run": strconv.FormatBool(info.DryRun),
	})
	return sentry.SetHubOnContext(ctx, hub)
}

// RunFromContext returns the run info stored in the context, if any
func RunFromContext(ctx context.Context) (RunInfo, bool) {
	if ctx == nil {
		return RunInfo{}, false
	}
	info, ok := ctx.Value(runKey{}).(RunInfo)
	return info, ok
}
