package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRegistry reads endpoints from the registration subsystem's table.
type PGRegistry struct {
	pool *pgxpool.Pool
}

func NewPGRegistry(pool *pgxpool.Pool) *PGRegistry {
	return &PGRegistry{pool: pool}
}

const endpointColumns = `id, tenant_id, url, secret, event_filter, status,
	max_retries, retry_interval_seconds, custom_headers`

func scanEndpoint(row pgx.Row) (Endpoint, error) {
	var (
		ep            Endpoint
		status        string
		intervalSecs  int
		customHeaders map[string]string
	)
	err := row.Scan(&ep.ID, &ep.TenantID, &ep.URL, &ep.Secret, &ep.EventFilter,
		&status, &ep.MaxRetries, &intervalSecs, &customHeaders)
	if err != nil {
		return Endpoint{}, err
	}
	ep.Status = Status(status)
	ep.RetryInterval = time.Duration(intervalSecs) * time.Second
	ep.CustomHeaders = customHeaders
	return ep, nil
}

func (r *PGRegistry) ListActive(ctx context.Context, tenantID string) ([]Endpoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+endpointColumns+`
		FROM hookflow.endpoints
		WHERE tenant_id = $1 AND status = 'active'
		ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active endpoints: %w", err)
	}
	defer rows.Close()

	var out []Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func (r *PGRegistry) Get(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	ep, err := scanEndpoint(r.pool.QueryRow(ctx, `
		SELECT `+endpointColumns+`
		FROM hookflow.endpoints
		WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint %s: %w", id, err)
	}
	return &ep, nil
}
