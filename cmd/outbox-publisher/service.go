package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	"github.com/crispyspin/crispyspin-backend/pkg/enums"
	"github.com/crispyspin/crispyspin-backend/pkg/logger"
	"github.com/crispyspin/crispyspin-backend/pkg/metrics"
	"github.com/crispyspin/crispyspin-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	DomainTopic() string
	OrderedPublisher(topic string) (*gcppubsub.Publisher, error)
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	InsertDeadLetter(tx *gorm.DB, entry models.OutboxDLQ) error
}

// publisher is the slice of a Pub/Sub publisher the relay drives.
// ResumePublish unblocks an ordering key after a failed publish.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	Metrics    *metrics.RelayMetrics
	// Publisher overrides the topic publisher built from PubSub.
	Publisher publisher
}

// Relay moves committed outbox rows onto the domain topic. Events that share
// a wallet are published with that wallet as ordering key, so a wallet's
// spins and settlements reach subscribers in commit order.
type Relay struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	pub          publisher
	metrics      *metrics.RelayMetrics
	topic        string
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	}

	topic := params.PubSub.DomainTopic()
	pub := params.Publisher
	if pub == nil {
		handle, err := params.PubSub.OrderedPublisher(topic)
		if err != nil {
			return nil, fmt.Errorf("publisher for %s: %w", topic, err)
		}
		pub = &gcpPublisher{Publisher: handle}
	}

	outboxCfg := params.Config.Outbox
	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		pub:          pub,
		metrics:      params.Metrics,
		topic:        topic,
		batchSize:    positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func (s *Relay) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "dependency", "database"), "relay.ping.failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "dependency", "pubsub"), "relay.ping.failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; batch errors back off exponentially up to maxBackoff.
func (s *Relay) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "relay.stopped")
			return err
		}

		started := time.Now()
		processed, err := s.processBatch(ctx)
		s.metrics.ObserveBatch(time.Since(started))

		wait := s.pollInterval
		switch {
		case err != nil:
			s.logg.Error(ctx, "relay.batch.failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = backoff
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
		}

		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

// processBatch relays one locked batch. After a wallet's event fails, its
// later events in the same batch are left for the next poll.
func (s *Relay) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		blocked := map[string]bool{}
		for _, event := range events {
			envelope, err := outbox.DecodeEnvelope(event.Payload)
			if err != nil {
				if err := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err); err != nil {
					return err
				}
				continue
			}

			key := envelope.OrderingKey()
			if key != "" && blocked[key] {
				continue
			}

			eventCtx := s.logg.WithFields(ctx, s.eventFields(event, envelope))
			pubErr := s.publish(ctx, event, envelope, key)
			if pubErr == nil {
				if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
					return fmt.Errorf("mark published %s: %w", event.ID, err)
				}
				s.metrics.IncPublished(string(event.EventType))
				s.logg.Info(eventCtx, "relay.event.published")
				continue
			}

			if key != "" {
				blocked[key] = true
				s.pub.ResumePublish(key)
			}
			if event.AttemptCount+1 >= s.maxAttempts {
				if err := s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr)); err != nil {
					return err
				}
				continue
			}

			s.metrics.IncFailed(string(event.EventType))
			s.logg.Warn(s.logg.WithFields(eventCtx, map[string]any{
				"attempt_count": event.AttemptCount + 1,
				"error":         pubErr.Error(),
			}), "relay.event.retry")
			if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
				return fmt.Errorf("mark failure %s: %w", event.ID, err)
			}
		}
		return nil
	})
	return processed, err
}

// deadLetter copies the row into outbox_dlq and retires it from the relay.
func (s *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	eventCtx := s.logg.WithFields(ctx, s.eventFields(event, outbox.Envelope{}))
	s.logg.Warn(s.logg.WithFields(eventCtx, map[string]any{
		"error":  cause.Error(),
		"reason": reason,
	}), "relay.event.dead_lettered")
	s.metrics.IncDeadLettered(string(event.EventType))

	msg := cause.Error()
	if err := s.repo.InsertDeadLetter(tx, models.OutboxDLQ{
		OutboxID:      event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount + 1,
	}); err != nil {
		return fmt.Errorf("dead letter %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Relay) publish(ctx context.Context, event models.OutboxEvent, envelope outbox.Envelope, key string) error {
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if key != "" {
		msg.Attributes["wallet"] = key
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned no result for topic %s", s.topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Relay) eventFields(event models.OutboxEvent, envelope outbox.Envelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount,
		"topic":          s.topic,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	if next := current * 2; next < max {
		return next
	}
	return max
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
