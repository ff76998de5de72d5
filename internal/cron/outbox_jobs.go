package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultMaxAttempts     = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxMaintenanceRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
	CountDeadLettered(tx *gorm.DB, maxAttempts int) (int64, error)
}

// OutboxJobParams configure the outbox maintenance jobs.
type OutboxJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxMaintenanceRepo
	Metrics     *metrics.JobMetrics
	Retention   time.Duration
	MaxAttempts int
	Clock       func() time.Time
}

func (p OutboxJobParams) validate() error {
	switch {
	case p.Logger == nil:
		return fmt.Errorf("logger required")
	case p.DB == nil:
		return fmt.Errorf("db runner required")
	case p.Repository == nil:
		return fmt.Errorf("outbox repository required")
	}
	return nil
}

// NewOutboxRetentionJob deletes published outbox rows older than the
// retention window. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxMaintenanceRepo
	retention time.Duration
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox.retention.complete")
	return nil
}

// NewDeadLetterMonitorJob reports how many outbox rows the relay gave up on.
func NewDeadLetterMonitorJob(params OutboxJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &deadLetterMonitorJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		metrics:     params.Metrics,
		maxAttempts: maxAttempts,
	}, nil
}

type deadLetterMonitorJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxMaintenanceRepo
	metrics     *metrics.JobMetrics
	maxAttempts int
}

func (j *deadLetterMonitorJob) Name() string { return "outbox-dead-letters" }

func (j *deadLetterMonitorJob) Run(ctx context.Context) error {
	var backlog int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.CountDeadLettered(tx, j.maxAttempts)
		backlog = n
		return err
	})
	if err != nil {
		return fmt.Errorf("count dead letters: %w", err)
	}
	j.metrics.SetDeadLetterBacklog(backlog)
	if backlog > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "dead_lettered", backlog), "outbox.dead_letters.present")
	}
	return nil
}
