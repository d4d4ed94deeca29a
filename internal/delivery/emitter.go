package delivery

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/camayank/hookflow/internal/event"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/metrics"
	"github.com/camayank/hookflow/internal/tracing"
)

// Emitter is the pipeline entry point. The async path enqueues and
// returns immediately, never blocking on network I/O; the sync path
// drives one delivery round inline and is intended for tests and
// ordering-sensitive callers.
type Emitter struct {
	queue  *Queue
	worker *Worker
	logger *logging.Logger
}

func NewEmitter(queue *Queue, worker *Worker, logger *logging.Logger) *Emitter {
	return &Emitter{queue: queue, worker: worker, logger: logger}
}

// Emit builds an immutable event and hands it to the pipeline.
// Retryable delivery failures never surface here: emission is
// fire-and-forget, and an exhausted retry budget is visible only
// through delivery history and endpoint counters.
func (e *Emitter) Emit(ctx context.Context, eventType, tenantID string, data, metadata map[string]any, async bool) (uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "emitter.emit",
		attribute.String("event_type", eventType),
		attribute.String("tenant_id", tenantID),
		attribute.Bool("async", async),
	)
	defer span.End()

	ev := event.New(eventType, tenantID, data, metadata)
	span.SetAttributes(attribute.String("event_id", ev.ID.String()))

	if async {
		if err := e.queue.Enqueue(ev); err != nil {
			tracing.SetSpanError(ctx, err)
			e.logger.WithContext(ctx).
				WithTenant(tenantID).WithEvent(ev.ID.String()).
				WithError(err).Error("enqueue failed")
			return uuid.Nil, err
		}
		metrics.RecordEventEmitted(tenantID)
		e.logger.WithContext(ctx).
			WithTenant(tenantID).WithEvent(ev.ID.String()).
			WithField("event_type", eventType).
			Debug("event enqueued")
		return ev.ID, nil
	}

	if err := e.worker.Deliver(ctx, ev); err != nil {
		tracing.SetSpanError(ctx, err)
		return uuid.Nil, err
	}
	metrics.RecordEventEmitted(tenantID)
	return ev.ID, nil
}
