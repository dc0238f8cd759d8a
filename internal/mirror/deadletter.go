package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"propdash/pkg/kafka"
	"propdash/pkg/logger"
)

const deadLetterSource = "propdash-mirror"

// DeadLetterSink receives payloads whose delivery failed or never started.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, payload Payload, cause error) error
}

// LogDeadLetter records the full payload in the log and nothing else.
type LogDeadLetter struct {
	log *logger.Logger
}

func NewLogDeadLetter(log *logger.Logger) *LogDeadLetter {
	return &LogDeadLetter{log: log}
}

func (l *LogDeadLetter) DeadLetter(_ context.Context, payload Payload, cause error) error {
	l.log.Error("Mirror event dead-lettered",
		"event", payload.Event,
		"event_id", payload.EventID,
		"listing_id", payload.ID,
		"occurred_at", payload.OccurredAt,
		"cause", cause,
	)
	return nil
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Topic() string
}

// KafkaDeadLetter publishes failed payloads to a topic so mirror-replay can
// redeliver them later. Messages are keyed by listing id to keep per-listing
// order within a partition.
type KafkaDeadLetter struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaDeadLetter(producer publisher, log *logger.Logger) *KafkaDeadLetter {
	return &KafkaDeadLetter{producer: producer, log: log}
}

func (k *KafkaDeadLetter) DeadLetter(ctx context.Context, payload Payload, cause error) error {
	built, err := kafka.NewMessage().
		WithKey(payload.ID).
		WithValue(payload).
		WithEventID(payload.EventID).
		WithEventType(payload.Event.String()).
		WithSource(deadLetterSource).
		WithHeader(kafka.HeaderFailureReason, cause.Error()).
		WithHeader(kafka.HeaderFailedAt, time.Now().UTC().Format(time.RFC3339)).
		Build()
	if err != nil {
		return fmt.Errorf("build dead-letter message: %w", err)
	}
	if err := k.producer.Publish(ctx, built); err != nil {
		return err
	}
	k.log.Warn("Mirror event dead-lettered",
		"topic", k.producer.Topic(),
		"event", payload.Event,
		"event_id", payload.EventID,
		"listing_id", payload.ID,
		"cause", cause,
	)
	return nil
}

// DecodePayload reads a dead-lettered payload back from a Kafka message.
func DecodePayload(msg kafka.Message) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return Payload{}, kafka.NewPermanentError("decode mirror payload", err)
	}
	if !payload.Event.Valid() {
		return Payload{}, kafka.NewPermanentError(fmt.Sprintf("unknown mirror event %q", payload.Event), nil)
	}
	return payload, nil
}
