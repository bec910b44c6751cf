package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/prakerin/prakerin/internal/jobs"
	"github.com/prakerin/prakerin/internal/rbac"
)

// IntegrityStore lists accounts missing a profile row or role assignments.
type IntegrityStore interface {
	ListIntegrityFaults(ctx context.Context) ([]rbac.IntegrityFault, error)
}

// IntegrityScanJob reports accounts that would fail authorization with a
// data integrity error before their owners try to sign in.
type IntegrityScanJob struct {
	Store   IntegrityStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(store IntegrityStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityScanJob {
	return &IntegrityScanJob{Store: store, Logger: logger, Metrics: metrics}
}

// IntegrityReport summarises one scan.
type IntegrityReport struct {
	Faults         int
	MissingProfile int
	MissingRoles   int
}

// Handle executes the scan for an Asynq task.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("integrity scan: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run scans the store and logs every fault at Error.
func (j *IntegrityScanJob) Run(ctx context.Context, payload IntegrityScanPayload) (report IntegrityReport, err error) {
	if j.Store == nil {
		return report, errors.New("integrity scan: store not configured")
	}
	start := time.Now()
	tracker := j.Metrics.Track("rbac_integrity_scan")
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("job", TaskIntegrityScan))
	faults, err := j.Store.ListIntegrityFaults(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return report, err
	}

	for i, f := range faults {
		if f.MissingProfile {
			report.MissingProfile++
		}
		if f.MissingRoles {
			report.MissingRoles++
		}
		if payload.Limit > 0 && i >= payload.Limit {
			continue
		}
		logger.Error("rbac data integrity",
			slog.String("user_id", f.UserID.String()),
			slog.String("email", f.Email),
			slog.Bool("missing_profile", f.MissingProfile),
			slog.Bool("missing_roles", f.MissingRoles),
		)
	}
	report.Faults = len(faults)
	j.Metrics.AddIntegrityFaults("profile", report.MissingProfile)
	j.Metrics.AddIntegrityFaults("roles", report.MissingRoles)

	logger.Info("completed integrity scan",
		slog.Int("faults", report.Faults),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
