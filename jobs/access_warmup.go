package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/aksara-hq/aksara-admin/internal/jobs"
	"github.com/aksara-hq/aksara-admin/internal/rbac"
)

const defaultWarmupConcurrency = 4

// AccessWarmupJob primes the Redis access cache by resolving the accessible
// feature list for every role. Run after deploys or cache flushes so the
// first dashboard load does not pay the resolve cost.
type AccessWarmupJob struct {
	Engine  *rbac.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAccessWarmupJob wires dependencies for the warmup handler.
func NewAccessWarmupJob(engine *rbac.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessWarmupJob {
	return &AccessWarmupJob{Engine: engine, Logger: logger, Metrics: metrics}
}

// Handle processes access warmup tasks.
func (j *AccessWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Engine == nil {
		return errors.New("access warmup: handler not configured")
	}
	var payload AccessWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	concurrency := payload.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWarmupConcurrency
	}

	tracker := j.metrics().Track(TaskAccessWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := time.Now()
	roles, err := j.Engine.ListRoles(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("list roles for warmup", slog.Any("error", err))
		return resultErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, role := range roles {
		roleID := role.ID
		g.Go(func() error {
			if _, err := j.Engine.ListAccessibleFeatures(gctx, roleID); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
		j.logger().Error("warm access cache", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("access warmup completed",
		slog.Int("roles", len(roles)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AccessWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AccessWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
