package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/camayank/hookflow/internal/config"
	"github.com/camayank/hookflow/internal/endpoint"
	"github.com/camayank/hookflow/internal/event"
	"github.com/camayank/hookflow/internal/signature"
)

const (
	headerWebhookID        = "X-Webhook-ID"
	headerWebhookEvent     = "X-Webhook-Event"
	headerWebhookTimestamp = "X-Webhook-Timestamp"
	headerWebhookSignature = "X-Webhook-Signature"

	maxExcerptBytes = 10 << 10 // response body kept for diagnostics
)

// wirePayload is the JSON body receivers see.
type wirePayload struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata"`
}

// Client performs single HTTP delivery attempts. It never retries; retry
// decisions belong to the worker and scheduler.
type Client struct {
	http       *http.Client
	timeout    time.Duration
	maxPayload int
	userAgent  string
}

func NewClient(cfg config.Delivery) *Client {
	return NewClientWithHTTP(cfg, &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

// NewClientWithHTTP allows tests to inject a custom HTTP client.
func NewClientWithHTTP(cfg config.Delivery, hc *http.Client) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPayload := cfg.MaxPayloadSize
	if maxPayload <= 0 {
		maxPayload = 1 << 20
	}
	return &Client{
		http:       hc,
		timeout:    timeout,
		maxPayload: maxPayload,
		userAgent:  cfg.UserAgent,
	}
}

// buildBody serializes the event, truncating oversized payloads. The
// returned bytes are final: they are what gets signed and transmitted.
func (c *Client) buildBody(ev event.Event) ([]byte, error) {
	ts := ev.OccurredAt.UTC().Format(time.RFC3339)
	body, err := json.Marshal(wirePayload{
		ID:        ev.ID.String(),
		Type:      ev.Type,
		Timestamp: ts,
		Data:      ev.Data,
		Metadata:  ev.Metadata,
	})
	if err != nil {
		return nil, err
	}
	if len(body) <= c.maxPayload {
		return body, nil
	}

	// Oversized: replace data with a truncation marker and re-serialize.
	// Receivers still get the event envelope and can fetch the full
	// payload out of band using the event id.
	return json.Marshal(wirePayload{
		ID:        ev.ID.String(),
		Type:      ev.Type,
		Timestamp: ts,
		Data: map[string]any{
			"_truncated":          true,
			"original_size_bytes": len(body),
			"event_id":            ev.ID.String(),
		},
		Metadata: ev.Metadata,
	})
}

// Attempt performs exactly one HTTP POST to the endpoint and classifies
// the outcome. The passed context bounds the request in addition to the
// client's fixed timeout.
func (c *Client) Attempt(ctx context.Context, ep endpoint.Endpoint, ev event.Event, attemptNumber int) AttemptResult {
	body, err := c.buildBody(ev)
	if err != nil {
		return AttemptResult{
			ErrorKind:    ErrorKindTransport,
			ErrorMessage: "serialize payload: " + err.Error(),
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return AttemptResult{
			ErrorKind:    ErrorKindTransport,
			ErrorMessage: "build request: " + err.Error(),
			RequestBody:  body,
		}
	}

	// Custom headers first so they can never clobber the signature.
	for k, v := range ep.CustomHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set(headerWebhookID, ev.ID.String())
	req.Header.Set(headerWebhookEvent, ev.Type)
	req.Header.Set(headerWebhookTimestamp, ev.OccurredAt.UTC().Format(time.RFC3339))
	req.Header.Set(headerWebhookSignature, signature.Sign(body, ep.Secret))

	start := time.Now()
	resp, doErr := c.http.Do(req)
	duration := time.Since(start)

	if doErr != nil {
		kind := ErrorKindTransport
		if isTimeout(reqCtx, doErr) {
			kind = ErrorKindTimeout
		}
		return AttemptResult{
			Duration:     duration,
			ErrorKind:    kind,
			ErrorMessage: doErr.Error(),
			RequestBody:  body,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxExcerptBytes))
	res := AttemptResult{
		StatusCode:      resp.StatusCode,
		Duration:        duration,
		RequestBody:     body,
		ResponseExcerpt: sanitize(excerpt),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Success = true
		return res
	}

	res.ErrorKind = HTTPErrorKind(resp.StatusCode)
	res.ErrorMessage = "endpoint returned status " + resp.Status
	return res
}

func isTimeout(reqCtx context.Context, err error) bool {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sanitize flattens newlines so excerpts stay single-line in logs and rows.
func sanitize(b []byte) string {
	return strings.ReplaceAll(string(b), "\n", " ")
}
