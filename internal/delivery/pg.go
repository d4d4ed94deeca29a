package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the production Store backed by Postgres. Claiming uses
// FOR UPDATE SKIP LOCKED so independent worker instances never
// double-send the same chain.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const deliveryColumns = `id, event_id, endpoint_id, tenant_id, event_type,
	event_occurred_at, data, metadata, status, attempt_count, next_retry_at,
	COALESCE(last_error, ''), created_at, updated_at, delivered_at`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var (
		d      Delivery
		status string
	)
	err := row.Scan(&d.ID, &d.EventID, &d.EndpointID, &d.TenantID, &d.EventType,
		&d.EventOccurredAt, &d.Data, &d.Metadata, &status, &d.AttemptCount,
		&d.NextRetryAt, &d.LastError, &d.CreatedAt, &d.UpdatedAt, &d.DeliveredAt)
	if err != nil {
		return Delivery{}, err
	}
	d.Status = Status(status)
	return d, nil
}

func (s *PGStore) CreateDelivery(ctx context.Context, d *Delivery) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO hookflow.deliveries
			(id, event_id, endpoint_id, tenant_id, event_type, event_occurred_at,
			 data, metadata, status, attempt_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.EventID, d.EndpointID, d.TenantID, d.EventType, d.EventOccurredAt,
		d.Data, d.Metadata, string(d.Status), d.AttemptCount,
	)
	if err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

func (s *PGStore) Record(ctx context.Context, d *Delivery, att Attempt) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Conditional update: a terminal chain is never demoted, even by a
	// racing worker with stale state.
	ct, err := tx.Exec(ctx, `
		UPDATE hookflow.deliveries
		SET status = $2, attempt_count = $3, next_retry_at = $4,
		    last_error = NULLIF($5, ''), delivered_at = $6, updated_at = now()
		WHERE id = $1 AND status NOT IN ('delivered', 'failed')`,
		d.ID, string(d.Status), d.AttemptCount, d.NextRetryAt, d.LastError, d.DeliveredAt,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrTerminalState
	}

	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO hookflow.delivery_attempts
			(id, delivery_id, attempt_number, request_body, response_status,
			 response_excerpt, status, error_message, duration_ms)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7, NULLIF($8, ''), $9)`,
		att.ID, d.ID, att.AttemptNumber, att.RequestBody, att.ResponseStatus,
		att.ResponseExcerpt, string(att.Status), att.ErrorMessage, att.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	success := att.Status == StatusDelivered
	_, err = tx.Exec(ctx, `
		INSERT INTO hookflow.endpoint_stats
			(endpoint_id, total_attempts, success_count, failure_count,
			 last_attempt_at, last_success_at, last_failure_at)
		VALUES ($1, 1,
			CASE WHEN $2 THEN 1 ELSE 0 END,
			CASE WHEN $2 THEN 0 ELSE 1 END,
			now(),
			CASE WHEN $2 THEN now() END,
			CASE WHEN $2 THEN null::timestamptz ELSE now() END)
		ON CONFLICT (endpoint_id) DO UPDATE SET
			total_attempts = endpoint_stats.total_attempts + 1,
			success_count  = endpoint_stats.success_count + (CASE WHEN $2 THEN 1 ELSE 0 END),
			failure_count  = endpoint_stats.failure_count + (CASE WHEN $2 THEN 0 ELSE 1 END),
			last_attempt_at = now(),
			last_success_at = CASE WHEN $2 THEN now() ELSE endpoint_stats.last_success_at END,
			last_failure_at = CASE WHEN $2 THEN endpoint_stats.last_failure_at ELSE now() END`,
		d.EndpointID, success,
	)
	if err != nil {
		return fmt.Errorf("rollup endpoint stats: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PGStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE hookflow.deliveries d
		SET status = 'pending', next_retry_at = NULL, updated_at = now()
		WHERE d.id IN (
			SELECT id FROM hookflow.deliveries
			WHERE status IN ('retrying', 'pending')
			  AND next_retry_at IS NOT NULL
			  AND next_retry_at <= $1
			ORDER BY next_retry_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+deliveryColumns, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE hookflow.deliveries
		SET status = 'failed', next_retry_at = NULL, last_error = $2, updated_at = now()
		WHERE id = $1 AND status NOT IN ('delivered', 'failed')`,
		id, reason)
	if err != nil {
		return fmt.Errorf("mark delivery failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrTerminalState
	}
	return nil
}

func (s *PGStore) MarkPending(ctx context.Context, id uuid.UUID) (bool, error) {
	// Manual operator action: failed chains may be re-enqueued, delivered
	// ones never are.
	ct, err := s.pool.Exec(ctx, `
		UPDATE hookflow.deliveries
		SET status = 'pending', next_retry_at = now(), last_error = NULL, updated_at = now()
		WHERE id = $1 AND status <> 'delivered'`,
		id)
	if err != nil {
		return false, fmt.Errorf("mark delivery pending: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PGStore) Recover(ctx context.Context, staleAfter time.Duration) (int, int, error) {
	cutoff := time.Now().UTC().Add(-staleAfter)

	// Chains claimed (or freshly created) by a worker that died mid-flight
	// sit at pending with no schedule; put them back on the retry timeline.
	ct, err := s.pool.Exec(ctx, `
		UPDATE hookflow.deliveries
		SET status = 'retrying', next_retry_at = now(), updated_at = now()
		WHERE status = 'pending' AND next_retry_at IS NULL AND updated_at < $1`,
		cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("recover stale deliveries: %w", err)
	}

	var retrying int
	err = s.pool.QueryRow(ctx, `
		SELECT count(*) FROM hookflow.deliveries WHERE status = 'retrying'`).Scan(&retrying)
	if err != nil {
		return 0, 0, fmt.Errorf("count retrying deliveries: %w", err)
	}
	return int(ct.RowsAffected()), retrying, nil
}

func (s *PGStore) History(ctx context.Context, endpointID uuid.UUID, limit, offset int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.delivery_id, d.event_id, d.event_type, a.attempt_number,
		       a.request_body, COALESCE(a.response_status, 0),
		       COALESCE(a.response_excerpt, ''), a.status,
		       COALESCE(a.error_message, ''), a.duration_ms, a.created_at
		FROM hookflow.delivery_attempts a
		JOIN hookflow.deliveries d ON d.id = a.delivery_id
		WHERE d.endpoint_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3`,
		endpointID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("delivery history: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a      Attempt
			status string
		)
		err := rows.Scan(&a.ID, &a.DeliveryID, &a.EventID, &a.EventType,
			&a.AttemptNumber, &a.RequestBody, &a.ResponseStatus,
			&a.ResponseExcerpt, &status, &a.ErrorMessage, &a.DurationMS, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		a.Status = Status(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	d, err := scanDelivery(s.pool.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM hookflow.deliveries
		WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery %s: %w", id, err)
	}
	return &d, nil
}

func (s *PGStore) Stats(ctx context.Context, endpointID uuid.UUID) (EndpointStats, error) {
	st := EndpointStats{EndpointID: endpointID}
	err := s.pool.QueryRow(ctx, `
		SELECT total_attempts, success_count, failure_count,
		       last_attempt_at, last_success_at, last_failure_at
		FROM hookflow.endpoint_stats
		WHERE endpoint_id = $1`, endpointID,
	).Scan(&st.TotalAttempts, &st.SuccessCount, &st.FailureCount,
		&st.LastAttemptAt, &st.LastSuccessAt, &st.LastFailureAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return EndpointStats{}, fmt.Errorf("endpoint stats: %w", err)
	}
	return st, nil
}
