package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/armazem-neca/armazem-api/internal/auth"
	jobmetrics "github.com/armazem-neca/armazem-api/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeRefreshTokens removes refresh-token rows past the
	// refresh TTL horizon. Their signed tokens are already expired,
	// the rows only consume space.
	TaskPurgeRefreshTokens = "auth:purge_refresh"
)

// PurgeRefreshPayload parametrizes a purge run.
type PurgeRefreshPayload struct {
	TTL time.Duration `json:"ttl"`
}

// NewPurgeRefreshTask constructs an Asynq task.
func NewPurgeRefreshTask(payload PurgeRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeRefreshTokens, data), nil
}

// NewPurgeRefreshHandler builds the handler for TaskPurgeRefreshTokens.
// The purge runs outside any request, so it uses the pool directly; no
// security context applies to maintenance work.
func NewPurgeRefreshHandler(pool *pgxpool.Pool, repo auth.Repository, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskPurgeRefreshTokens)
		var payload PurgeRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(asynq.SkipRetry)
		}
		if payload.TTL <= 0 {
			return tracker.End(asynq.SkipRetry)
		}
		cutoff := time.Now().UTC().Add(-payload.TTL)
		removed, err := repo.DeleteRefreshTokensBefore(ctx, pool, cutoff)
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("purged refresh tokens", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
		return tracker.End(nil)
	}
}
