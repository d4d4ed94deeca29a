package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"

	"github.com/camayank/hookflow/internal/endpoint"
	"github.com/camayank/hookflow/internal/event"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/metrics"
	"github.com/camayank/hookflow/internal/tracing"
)

// WorkerConfig tunes a Worker's polling and recovery behavior.
type WorkerConfig struct {
	PollInterval  time.Duration // due-retry scan cadence while the queue is idle
	ClaimBatch    int           // max due chains claimed per scan
	RecoveryStale time.Duration // age before orphaned in-flight chains are rescheduled
}

func (c *WorkerConfig) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.ClaimBatch <= 0 {
		c.ClaimBatch = 50
	}
	if c.RecoveryStale <= 0 {
		c.RecoveryStale = 5 * time.Minute
	}
}

// Worker drains the dispatch queue and drives due retries. Attempts to
// different endpoints for one event run in parallel; attempts within one
// chain are strictly sequential. Several Worker instances may run against
// the same store: claiming is atomic at the storage layer.
type Worker struct {
	store    Store
	registry endpoint.Registry
	matcher  *endpoint.Matcher
	client   *Client
	queue    *Queue
	logger   *logging.Logger
	cfg      WorkerConfig

	wg sync.WaitGroup
}

func NewWorker(store Store, registry endpoint.Registry, client *Client, queue *Queue, logger *logging.Logger, cfg WorkerConfig) *Worker {
	cfg.defaults()
	return &Worker{
		store:    store,
		registry: registry,
		matcher:  endpoint.NewMatcher(registry),
		client:   client,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
	}
}

// Run processes queue items and due retries until ctx is cancelled or the
// queue is closed. Cancellation stops claiming new work; in-flight HTTP
// attempts are left to finish or hit their timeout.
func (w *Worker) Run(ctx context.Context) error {
	w.recoverState(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	// The recovery scan also runs periodically so chains stranded by an
	// infrastructure error mid-claim get rescued without a restart.
	recovery := time.NewTicker(w.cfg.RecoveryStale)
	defer recovery.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case ev, ok := <-w.queue.C():
			if !ok {
				w.wg.Wait()
				return nil
			}
			metrics.QueueDepth.Set(float64(w.queue.Len()))
			_ = w.Deliver(ctx, ev)
		case <-ticker.C:
			// Buffered events drain before any due-retry scan.
			if w.drainQueue(ctx) {
				w.wg.Wait()
				return nil
			}
			w.processDue(ctx)
		case <-recovery.C:
			w.recoverState(ctx)
		}
	}
}

// drainQueue empties the buffered queue without blocking and reports
// whether the queue was closed.
func (w *Worker) drainQueue(ctx context.Context) bool {
	for {
		select {
		case ev, ok := <-w.queue.C():
			if !ok {
				return true
			}
			metrics.QueueDepth.Set(float64(w.queue.Len()))
			_ = w.Deliver(ctx, ev)
		default:
			return false
		}
	}
}

// recoverState resumes scheduling for retry state found in the store.
// Retry state is durable, so a restart never silently drops a retry.
func (w *Worker) recoverState(ctx context.Context) {
	restored, retrying, err := w.store.Recover(ctx, w.cfg.RecoveryStale)
	if err != nil {
		w.logger.Plain().WithError(err).Error("recovery scan failed")
		return
	}
	metrics.RecoveredRetriesTotal.Add(float64(retrying))
	w.logger.WithFields(map[string]any{
		"restored": restored,
		"retrying": retrying,
	}).Info("recovery scan complete")
}

// Deliver fans an event out to all matched endpoints, attempting each
// once, in parallel across endpoints. It returns after every matched
// endpoint has been attempted, which is what the synchronous emit path
// needs. No endpoints matched is a valid no-op.
func (w *Worker) Deliver(ctx context.Context, ev event.Event) error {
	ctx, span := tracing.StartSpan(ctx, "worker.deliver",
		attribute.String("event_id", ev.ID.String()),
		attribute.String("event_type", ev.Type),
		attribute.String("tenant_id", ev.TenantID),
	)
	defer span.End()

	matched, err := w.matcher.Match(ctx, ev)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		w.logger.WithContext(ctx).WithEvent(ev.ID.String()).WithError(err).Error("endpoint matching failed")
		return err
	}
	span.SetAttributes(attribute.Int("fanout_count", len(matched)))
	if len(matched) == 0 {
		return nil
	}

	var fanout sync.WaitGroup
	for _, ep := range matched {
		del := NewDelivery(ev, ep.ID)
		if err := w.store.CreateDelivery(ctx, del); err != nil {
			tracing.SetSpanError(ctx, err)
			w.logger.WithContext(ctx).
				WithEvent(ev.ID.String()).WithEndpoint(ep.ID.String()).
				WithError(err).Error("create delivery failed")
			continue
		}

		fanout.Add(1)
		w.wg.Add(1)
		go func(del *Delivery, ep endpoint.Endpoint) {
			defer fanout.Done()
			defer w.wg.Done()
			w.attemptOnce(ctx, del, ep)
		}(del, ep)
	}
	fanout.Wait()
	return nil
}

// processDue claims due retry chains and re-attempts them. A chain whose
// endpoint is no longer active terminates without another network call.
func (w *Worker) processDue(ctx context.Context) {
	claimed, err := w.store.ClaimDue(ctx, time.Now().UTC(), w.cfg.ClaimBatch)
	if err != nil {
		w.logger.Plain().WithError(err).Error("claim due retries failed")
		return
	}

	for i := range claimed {
		if ctx.Err() != nil {
			return
		}
		del := claimed[i]

		ep, err := w.registry.Get(ctx, del.EndpointID)
		if err != nil {
			w.logger.WithContext(ctx).WithDelivery(del.ID.String()).WithError(err).Error("endpoint lookup failed")
			w.requeue(ctx, del.ID)
			continue
		}
		if ep == nil || !ep.Active() {
			if err := w.store.MarkFailed(ctx, del.ID, ErrEndpointInactive); err != nil {
				w.logger.WithContext(ctx).WithDelivery(del.ID.String()).WithError(err).Error("mark failed errored")
				if !errors.Is(err, ErrTerminalState) {
					w.requeue(ctx, del.ID)
				}
				continue
			}
			metrics.TerminalFailuresTotal.Inc()
			w.logger.WithContext(ctx).
				WithDelivery(del.ID.String()).WithEndpoint(del.EndpointID.String()).
				Info("retry skipped, endpoint no longer active")
			continue
		}

		w.attemptOnce(ctx, &del, *ep)
	}
}

// attemptOnce performs the chain's next attempt and records the outcome.
// The HTTP call runs on a detached context so shutdown does not abort it
// mid-request; the client's own timeout still applies.
func (w *Worker) attemptOnce(ctx context.Context, del *Delivery, ep endpoint.Endpoint) {
	n := del.AttemptCount + 1

	ctx, span := tracing.StartSpan(ctx, "worker.attempt",
		attribute.String("delivery_id", del.ID.String()),
		attribute.String("endpoint_id", ep.ID.String()),
		attribute.String("endpoint_url", ep.URL),
		attribute.Int("attempt", n),
	)
	defer span.End()

	// Shutdown must neither abort the request mid-flight nor drop its
	// outcome, so both the attempt and the record run detached.
	ctx = context.WithoutCancel(ctx)

	res := w.client.Attempt(ctx, ep, del.Event(), n)
	span.SetAttributes(
		attribute.Int("http.status_code", res.StatusCode),
		attribute.Int64("http.latency_ms", res.Duration.Milliseconds()),
	)

	now := time.Now().UTC()
	del.AttemptCount = n
	att := Attempt{
		DeliveryID:      del.ID,
		EventID:         del.EventID,
		EventType:       del.EventType,
		AttemptNumber:   n,
		RequestBody:     res.RequestBody,
		ResponseStatus:  res.StatusCode,
		ResponseExcerpt: res.ResponseExcerpt,
		ErrorMessage:    res.ErrorMessage,
		DurationMS:      res.Duration.Milliseconds(),
	}

	switch {
	case res.Success:
		del.Status = StatusDelivered
		del.NextRetryAt = nil
		del.LastError = ""
		del.DeliveredAt = &now
		att.Status = StatusDelivered
	case ShouldRetry(n, ep.MaxRetries):
		next := NextRetryAt(now, ep.RetryInterval, n)
		del.Status = StatusRetrying
		del.NextRetryAt = &next
		del.LastError = res.ErrorMessage
		att.Status = StatusRetrying
		metrics.RecordRetry(string(res.ErrorKind))
	default:
		del.Status = StatusFailed
		del.NextRetryAt = nil
		del.LastError = res.ErrorMessage
		att.Status = StatusFailed
		metrics.TerminalFailuresTotal.Inc()
	}

	metrics.RecordAttempt(string(att.Status), res.Duration)

	if err := w.store.Record(ctx, del, att); err != nil {
		tracing.SetSpanError(ctx, err)
		w.logger.WithContext(ctx).WithDelivery(del.ID.String()).WithError(err).Error("record attempt failed")
		if !errors.Is(err, ErrTerminalState) {
			w.requeue(ctx, del.ID)
		}
		return
	}

	entry := w.logger.WithContext(ctx).
		WithTenant(del.TenantID).
		WithEvent(del.EventID.String()).
		WithDelivery(del.ID.String()).
		WithEndpoint(ep.ID.String()).
		WithFields(map[string]any{
			"attempt": n,
			"status":  string(att.Status),
		})
	if res.Success {
		entry.Info("delivery attempt succeeded")
	} else {
		entry.WithField("error_kind", string(res.ErrorKind)).
			WithError(errorString(res.ErrorMessage)).
			Warn("delivery attempt failed")
	}
}

// requeue puts a claimed chain back on the retry timeline after an
// infrastructure error. A chain left at pending with no schedule would
// be unreachable by the poll loop until the next recovery scan.
func (w *Worker) requeue(ctx context.Context, id uuid.UUID) {
	if _, err := w.store.MarkPending(ctx, id); err != nil {
		w.logger.WithContext(ctx).WithDelivery(id.String()).WithError(err).Error("requeue after error failed")
	}
}

type strErr string

func (e strErr) Error() string { return string(e) }

func errorString(msg string) error {
	if msg == "" {
		return nil
	}
	return strErr(msg)
}
