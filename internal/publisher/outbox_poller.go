package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 100
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same sale id, same partition
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// OutboxPoller relays sale events written alongside each sale to Kafka.
// Events are marked processed only after the broker accepts them.
type OutboxPoller struct {
	eventTick time.Duration
	batchSize int
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

type Option func(*OutboxPoller)

func WithPollInterval(d time.Duration) Option {
	return func(p *OutboxPoller) {
		if d > 0 {
			p.eventTick = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *OutboxPoller) { p.metrics = m }
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, log zerolog.Logger, opts ...Option) *OutboxPoller {
	p := &OutboxPoller{
		eventTick: DefaultPollInterval,
		batchSize: DefaultBatchSize,
		repo:      repo,
		writer:    writer,
		log:       log.With().Str("component", "outbox_poller").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-outbox",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()

	p.log.Info().Dur("interval", p.eventTick).Msg("outbox poller started")
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			p.log.Info().Msg("outbox poller stopped")
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		_, err := p.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.publishToKafka(ctx, event)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// broker is considered down; keep order and retry the rest next tick
			p.metrics.OutboxEvent("skipped")
			return
		}
		if err != nil {
			p.metrics.OutboxEvent("failed")
			p.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to publish outbox event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark outbox event as processed")
			continue
		}
		p.metrics.OutboxEvent("published")
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // sale id for ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
