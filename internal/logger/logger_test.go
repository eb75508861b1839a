package logger_test

import (
	"context"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
)

func TestInitialize_WithoutSentry(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{Debug: true}))
	assert.NotNil(t, logger.Default())

	logger.InfoCtx(context.Background(), "initialized")
}

func TestRunContext(t *testing.T) {
	_, ok := logger.RunFromContext(context.Background())
	assert.False(t, ok)

	ctx := logger.WithRun(context.Background(), logger.RunInfo{RunID: "01J", Command: "sync-ids", DryRun: true})
	info, ok := logger.RunFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "sync-ids", info.Command)
	assert.Len(t, info.Fields(), 3)
	assert.NotNil(t, logger.FromContext(ctx))
}

func TestWithRun_TagsSentryHub(t *testing.T) {
	client, err := sentry.NewClient(sentry.ClientOptions{})
	require.NoError(t, err)

	require.NoError(t, logger.Initialize(logger.Config{SentryClient: client, Tags: map[string]string{"service": "reconciler"}}))
	t.Cleanup(func() {
		_ = logger.Initialize(logger.Config{})
	})

	ctx := logger.WithRun(context.Background(), logger.RunInfo{RunID: "01J", Command: "dedupe-consents"})
	hub := sentry.GetHubFromContext(ctx)
	require.NotNil(t, hub)
	assert.Same(t, client, hub.Client())

	logger.ErrorCtx(ctx, nil)
	logger.Flush(0)
}

func TestWithRun_WithoutSentry(t *testing.T) {
	require.NoError(t, logger.Initialize(logger.Config{}))

	ctx := logger.WithRun(context.Background(), logger.RunInfo{RunID: "01J"})
	assert.Nil(t, sentry.GetHubFromContext(ctx))
}
