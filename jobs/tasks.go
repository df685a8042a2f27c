// Package jobs defines the gateway's background work: identity
// reconciliation runs on the worker, never on a request goroutine.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/shikshaspace/gateway/internal/oauth"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeIdentitySync reconciles an externally-authenticated
	// identity with the user service.
	TaskTypeIdentitySync = "identity:sync"
)

// NewIdentitySyncTask constructs an Asynq task for one sync request.
// Sync is best-effort and must run at most once per login event, so the
// task carries MaxRetry(0).
func NewIdentitySyncTask(payload oauth.SyncRequest) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeIdentitySync, data, asynq.MaxRetry(0)), nil
}

// IdentitySyncHandler adapts a Syncer into an Asynq handler.
func IdentitySyncHandler(syncer *oauth.Syncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload oauth.SyncRequest
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		syncer.Sync(ctx, payload)
		return nil
	}
}
