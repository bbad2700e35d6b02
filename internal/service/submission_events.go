package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lingo-api/internal/dto"
	"github.com/noah-isme/gema-lingo-api/internal/observability"
)

// SubmissionEvaluatedEvent is the event type emitted after a submission is stored.
const SubmissionEvaluatedEvent = "submission.evaluated"

// SubmissionEventPublisher fans submission events out to message brokers.
type SubmissionEventPublisher interface {
	PublishSubmissionEvaluated(ctx context.Context, event dto.SubmissionEvent) error
}

// NoopSubmissionEventPublisher drops every event.
type NoopSubmissionEventPublisher struct{}

// PublishSubmissionEvaluated implements SubmissionEventPublisher.
func (NoopSubmissionEventPublisher) PublishSubmissionEvaluated(context.Context, dto.SubmissionEvent) error {
	return nil
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewSubmissionEventPublisher publishes to the redis channel "<base>:submissions"
// and the NATS subject "<base>.submissions.evaluated". Either broker may be nil.
func NewSubmissionEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) SubmissionEventPublisher {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" || (redisClient == nil && natsConn == nil) {
		return NoopSubmissionEventPublisher{}
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channelBase + ":submissions",
		nats:         natsConn,
		natsSubject:  strings.ReplaceAll(channelBase, ":", ".") + ".submissions.evaluated",
		logger:       logger.With().Str("component", "submission_events").Logger(),
	}
}

func (p *brokerEventPublisher) PublishSubmissionEvaluated(ctx context.Context, event dto.SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EventsPublished().WithLabelValues("redis", "error").Inc()
			p.logFailure(err, "redis", p.redisChannel, event)
			errs = append(errs, err)
		} else {
			observability.EventsPublished().WithLabelValues("redis", "ok").Inc()
		}
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			observability.EventsPublished().WithLabelValues("nats", "error").Inc()
			p.logFailure(err, "nats", p.natsSubject, event)
			errs = append(errs, err)
		} else {
			observability.EventsPublished().WithLabelValues("nats", "ok").Inc()
		}
	}

	return errors.Join(errs...)
}

func (p *brokerEventPublisher) logFailure(err error, broker, destination string, event dto.SubmissionEvent) {
	p.logger.Warn().
		Err(err).
		Str("broker", broker).
		Str("destination", destination).
		Str("event_id", event.EventID).
		Str("submission_id", event.SubmissionID).
		Msg("failed to publish submission event")
}
