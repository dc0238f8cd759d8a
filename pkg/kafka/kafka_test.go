package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"propdash/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, io.EOF
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "test"})
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "listing-mirror-dlq", testLogger())

	msg, err := NewMessage().WithKey("abc").WithValue(map[string]string{"name": "Maple Flat"}).WithEventType("listing.created").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("expected 1 written message, got %d", len(w.messages))
	}
	if string(w.messages[0].Key) != "abc" {
		t.Errorf("key = %q, want abc", w.messages[0].Key)
	}
}

func TestProducerPublish_Validation(t *testing.T) {
	p := newProducer(&fakeWriter{}, "t", testLogger())

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducerPublish_WriteFailureIsTransient(t *testing.T) {
	p := newProducer(&fakeWriter{err: errors.New("broker down")}, "t", testLogger())

	err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")})
	if ClassifyError(err) != ErrorTypeTransient {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"tagged transient", NewTransientError("x", nil), ErrorTypeTransient},
		{"tagged permanent", NewPermanentError("x", nil), ErrorTypePermanent},
		{"timeout text", errors.New("i/o timeout"), ErrorTypeTransient},
		{"refused text", errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{"unknown", errors.New("bad payload"), ErrorTypePermanent},
		{"temporary interface", tempErr{true}, ErrorTypeTransient},
		{"non-temporary interface", tempErr{false}, ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %s, want %s", got, tt.want)
			}
		})
	}
}

type tempErr struct{ temp bool }

func (e tempErr) Error() string   { return "temp" }
func (e tempErr) Temporary() bool { return e.temp }

func TestMessageRetryCount(t *testing.T) {
	var m Message
	if m.RetryCount() != 0 {
		t.Fatalf("expected 0 retries")
	}
	for i := 0; i < 12; i++ {
		m.IncrementRetryCount()
	}
	if m.RetryCount() != 12 {
		t.Errorf("RetryCount() = %d, want 12", m.RetryCount())
	}
}

func TestConsumer_RetriesTransientThenParks(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("k1"), Value: []byte("{}"), Offset: 7})
	parkingWriter := &fakeWriter{}

	var mu sync.Mutex
	calls := 0
	handler := func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return NewTransientError("remote down", nil)
	}

	c := newConsumer(reader, "listing-mirror-dlq", "replay", 2, handler, testLogger())
	c.backoff = time.Millisecond
	c.parking = newProducer(parkingWriter, "listing-mirror-parked", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		parkingWriter.mu.Lock()
		n := len(parkingWriter.messages)
		parkingWriter.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("message was not parked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3 (1 + 2 retries)", calls)
	}
	reader.mu.Lock()
	defer reader.mu.Unlock()
	if len(reader.committed) != 1 || reader.committed[0] != 7 {
		t.Errorf("committed = %v, want [7]", reader.committed)
	}
}

func TestConsumer_PermanentErrorNotRetried(t *testing.T) {
	reader := newFakeReader(kafka.Message{Key: []byte("k1"), Value: []byte("{}")})
	calls := 0
	processed := make(chan struct{})
	handler := func(ctx context.Context, msg Message) error {
		calls++
		close(processed)
		return NewPermanentError("rejected", nil)
	}

	c := newConsumer(reader, "t", "g", 5, handler, testLogger())
	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	<-processed
	_ = c.Close()
	if err := <-done; err != nil {
		t.Errorf("Start() after Close = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}
