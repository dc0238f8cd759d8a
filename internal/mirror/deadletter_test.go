package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propdash/pkg/kafka"
)

type fakePublisher struct {
	published []kafka.Message
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, msg kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Topic() string {
	return "listing-mirror-dlq"
}

func TestKafkaDeadLetter_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewKafkaDeadLetter(pub, testLogger())
	payload := NewPayload(EventCreated, mapleFlat(), time.Now())

	require.NoError(t, sink.DeadLetter(context.Background(), payload, errors.New("503 Service Unavailable")))
	require.Len(t, pub.published, 1)

	msg := pub.published[0]
	assert.Equal(t, payload.ID, msg.Key)
	assert.Equal(t, payload.EventID, msg.EventID())
	assert.Equal(t, "listing.created", msg.EventType())
	assert.Equal(t, "503 Service Unavailable", msg.Headers[kafka.HeaderFailureReason])

	decoded, err := DecodePayload(msg)
	require.NoError(t, err)
	assert.Equal(t, payload.Name, decoded.Name)
}

func TestKafkaDeadLetter_PublishError(t *testing.T) {
	pub := &fakePublisher{err: kafka.ErrProducerClosed}
	sink := NewKafkaDeadLetter(pub, testLogger())

	err := sink.DeadLetter(context.Background(), NewPayload(EventDeleted, mapleFlat(), time.Now()), errors.New("boom"))
	assert.ErrorIs(t, err, kafka.ErrProducerClosed)
}

func TestDecodePayload_Rejects(t *testing.T) {
	_, err := DecodePayload(kafka.Message{Value: []byte("{not json")})
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	raw, _ := json.Marshal(Payload{Event: "listing.renamed"})
	_, err = DecodePayload(kafka.Message{Value: raw})
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestLogDeadLetter(t *testing.T) {
	sink := NewLogDeadLetter(testLogger())
	assert.NoError(t, sink.DeadLetter(context.Background(), NewPayload(EventCreated, mapleFlat(), time.Now()), errors.New("x")))
}

func TestReplayer_Handle(t *testing.T) {
	payload := NewPayload(EventStatusChanged, mapleFlat(), time.Now())
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	msg := kafka.Message{Key: payload.ID, Value: raw, Headers: map[string]string{}}

	t.Run("delivered", func(t *testing.T) {
		deliverer := &fakeDeliverer{}
		r := NewReplayer(deliverer, nil, testLogger())
		require.NoError(t, r.Handle(context.Background(), msg))
		assert.Equal(t, 1, deliverer.count())
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		deliverer := &fakeDeliverer{err: &DeliveryError{Event: payload.Event, StatusCode: 502}}
		r := NewReplayer(deliverer, nil, testLogger())
		err := r.Handle(context.Background(), msg)
		assert.True(t, kafka.ShouldRetry(err, 0, 3))
	})

	t.Run("rejected payload is not retried", func(t *testing.T) {
		deliverer := &fakeDeliverer{err: &DeliveryError{Event: payload.Event, StatusCode: 422}}
		r := NewReplayer(deliverer, nil, testLogger())
		err := r.Handle(context.Background(), msg)
		assert.False(t, kafka.ShouldRetry(err, 0, 3))
	})
}
