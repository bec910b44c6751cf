package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/prakerin/prakerin/internal/rbac"
)

// ActivityLogJob persists queued activity entries.
type ActivityLogJob struct {
	Recorder rbac.ActivityRecorder
	Logger   *slog.Logger
}

// NewActivityLogJob initialises the activity log handler.
func NewActivityLogJob(recorder rbac.ActivityRecorder, logger *slog.Logger) *ActivityLogJob {
	return &ActivityLogJob{Recorder: recorder, Logger: logger}
}

// Handle writes the entry carried by t.
func (j *ActivityLogJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("activity log: handler not configured")
	}
	var payload ActivityLogPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("activity log: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := j.Recorder.RecordActivity(ctx, payload.entry()); err != nil {
		if j.Logger != nil {
			j.Logger.Warn("activity log write", slog.String("action", payload.Action), slog.Any("error", err))
		}
		return err
	}
	return nil
}
