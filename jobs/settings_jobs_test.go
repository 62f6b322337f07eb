package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/catalog/internal/jobs"
	"github.com/odyssey-erp/catalog/internal/settings"
)

type stubSource struct {
	lookups []settings.Lookup
	err     error
	root    string
}

func (s *stubSource) Lookups(ctx context.Context, rootCode string) ([]settings.Lookup, error) {
	s.root = rootCode
	return s.lookups, s.err
}

type stubWarmer struct {
	failFor int64
	warmed  []int64
}

func (s *stubWarmer) Chain(ctx context.Context, lookup settings.Lookup) (settings.Chain, error) {
	if lookup.CategoryID == s.failFor {
		return settings.Chain{}, errors.New("redis timeout")
	}
	s.warmed = append(s.warmed, lookup.CategoryID)
	return settings.Chain{}, nil
}

type stubInvalidator struct {
	calls int
	err   error
}

func (s *stubInvalidator) Invalidate(ctx context.Context) (int64, error) {
	s.calls++
	return int64(s.calls + 1), s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestSettingsWarmupSkipsFailingChains(t *testing.T) {
	source := &stubSource{lookups: []settings.Lookup{
		{BranchID: 1, CategoryID: 7},
		{BranchID: 1, CategoryID: 8},
		{BranchID: 2, CategoryID: 9},
	}}
	warmer := &stubWarmer{failFor: 8}
	job := NewSettingsWarmupJob(source, warmer, quietLogger(), testMetrics())
	task, err := NewSettingsWarmupTask(SettingsWarmupPayload{RootCode: "menu_category"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, "menu_category", source.root)
	require.Equal(t, []int64{7, 9}, warmer.warmed)
}

func TestSettingsWarmupLimitsToBranch(t *testing.T) {
	source := &stubSource{lookups: []settings.Lookup{
		{BranchID: 1, CategoryID: 7},
		{BranchID: 2, CategoryID: 9},
	}}
	warmer := &stubWarmer{}
	job := NewSettingsWarmupJob(source, warmer, quietLogger(), testMetrics())
	task, err := NewSettingsWarmupTask(SettingsWarmupPayload{RootCode: "menu_category", BranchID: 2})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{9}, warmer.warmed)
}

func TestSettingsWarmupRejectsBadPayload(t *testing.T) {
	job := NewSettingsWarmupJob(&stubSource{}, &stubWarmer{}, quietLogger(), testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskSettingsWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskSettingsWarmup, []byte(`{"root_code":""}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSettingsWarmupPropagatesSourceError(t *testing.T) {
	boom := errors.New("db down")
	job := NewSettingsWarmupJob(&stubSource{err: boom}, &stubWarmer{}, quietLogger(), testMetrics())
	task, err := NewSettingsWarmupTask(SettingsWarmupPayload{RootCode: "menu_category"})
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestSettingsInvalidateBumpsCache(t *testing.T) {
	invalidator := &stubInvalidator{}
	job := NewSettingsInvalidateJob(invalidator, quietLogger(), testMetrics())
	task, err := NewSettingsInvalidateTask(SettingsInvalidatePayload{Reason: "settings edited"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, invalidator.calls)
}

func TestSettingsInvalidatePropagatesError(t *testing.T) {
	boom := errors.New("redis down")
	job := NewSettingsInvalidateJob(&stubInvalidator{err: boom}, quietLogger(), testMetrics())
	task, err := NewSettingsInvalidateTask(SettingsInvalidatePayload{Reason: "manual"})
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestUnconfiguredJobsFail(t *testing.T) {
	var warmup *SettingsWarmupJob
	var invalidate *SettingsInvalidateJob
	task := asynq.NewTask(TaskSettingsInvalidate, []byte(`{}`))

	require.Error(t, warmup.Handle(context.Background(), task))
	require.Error(t, invalidate.Handle(context.Background(), task))
}
