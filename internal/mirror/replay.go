package mirror

import (
	"context"
	"time"

	"propdash/internal/metrics"
	"propdash/pkg/kafka"
	"propdash/pkg/logger"
)

// Replayer redelivers dead-lettered payloads. Its Handle method is a
// kafka.MessageHandler; delivery errors keep their Temporary classification
// so the consumer retries transient failures and parks the rest.
type Replayer struct {
	deliverer Deliverer
	metrics   metrics.Recorder
	log       *logger.Logger
}

func NewReplayer(deliverer Deliverer, rec metrics.Recorder, log *logger.Logger) *Replayer {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Replayer{deliverer: deliverer, metrics: rec, log: log}
}

func (r *Replayer) Handle(ctx context.Context, msg kafka.Message) error {
	payload, err := DecodePayload(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := r.deliverer.Deliver(ctx, payload); err != nil {
		r.metrics.RecordMirrorDelivery(payload.Event.String(), metrics.OutcomeFailed, time.Since(start))
		return err
	}

	r.metrics.RecordMirrorDelivery(payload.Event.String(), metrics.OutcomeDelivered, time.Since(start))
	r.log.Info("Mirror event replayed",
		"event", payload.Event,
		"event_id", payload.EventID,
		"listing_id", payload.ID,
		"retry_count", msg.RetryCount(),
	)
	return nil
}
