package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/catalog/internal/jobs"
	"github.com/odyssey-erp/catalog/internal/settings"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LookupSource lists the setting chains worth preloading.
type LookupSource interface {
	Lookups(ctx context.Context, rootCode string) ([]settings.Lookup, error)
}

// ChainWarmer loads one chain through the settings cache.
type ChainWarmer interface {
	Chain(ctx context.Context, lookup settings.Lookup) (settings.Chain, error)
}

// Invalidator drops cached setting chains, returning the new cache version.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// SettingsWarmupJob preloads setting chains so the first listing of a category hits the cache.
type SettingsWarmupJob struct {
	Source  LookupSource
	Warmer  ChainWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSettingsWarmupJob wires dependencies for the warm-up handler.
func NewSettingsWarmupJob(source LookupSource, warmer ChainWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SettingsWarmupJob {
	return &SettingsWarmupJob{Source: source, Warmer: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes warm-up tasks. A failing chain is logged and skipped.
func (j *SettingsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Source == nil || j.Warmer == nil {
		return errors.New("settings warmup: handler not configured")
	}
	var payload SettingsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RootCode == "" {
		return asynq.SkipRetry
	}

	tracker := metricsOrDefault(j.Metrics).Track(TaskSettingsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskSettingsWarmup).With(slog.String("root_code", payload.RootCode))
	start := time.Now()

	lookups, err := j.Source.Lookups(ctx, payload.RootCode)
	if err != nil {
		logger.Error("load warmup lookups", slog.Any("error", err))
		return err
	}

	warmed, failed := 0, 0
	for _, lookup := range lookups {
		if payload.BranchID != 0 && lookup.BranchID != payload.BranchID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := j.Warmer.Chain(ctx, lookup); err != nil {
			failed++
			logger.Warn("warm chain",
				slog.Int64("branch_id", lookup.BranchID),
				slog.Int64("category_id", lookup.CategoryID),
				slog.Any("error", err))
			continue
		}
		warmed++
	}

	logger.Info("completed settings warmup",
		slog.Int("chains", warmed),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// SettingsInvalidateJob bumps the settings cache version.
type SettingsInvalidateJob struct {
	Invalidator Invalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
}

// NewSettingsInvalidateJob wires dependencies for the invalidation handler.
func NewSettingsInvalidateJob(invalidator Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *SettingsInvalidateJob {
	return &SettingsInvalidateJob{Invalidator: invalidator, Logger: logger, Metrics: metrics}
}

// Handle processes invalidation tasks.
func (j *SettingsInvalidateJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Invalidator == nil {
		return errors.New("settings invalidate: handler not configured")
	}
	var payload SettingsInvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskSettingsInvalidate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	version, err := j.Invalidator.Invalidate(ctx)
	if err != nil {
		return err
	}
	metrics.AddInvalidated(1)
	jobLogger(j.Logger, TaskSettingsInvalidate).Info("settings cache invalidated",
		slog.String("reason", payload.Reason),
		slog.Int64("version", version))
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}

func metricsOrDefault(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}
