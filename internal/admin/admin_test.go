package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camayank/hookflow/internal/delivery"
	"github.com/camayank/hookflow/internal/event"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/signature"
)

type stubEmitter struct {
	lastType   string
	lastTenant string
	lastAsync  bool
	err        error
}

func (s *stubEmitter) Emit(_ context.Context, eventType, tenantID string, _, _ map[string]any, async bool) (uuid.UUID, error) {
	s.lastType = eventType
	s.lastTenant = tenantID
	s.lastAsync = async
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return uuid.New(), nil
}

func newTestServer(emitter Emitter, store delivery.Store) *httptest.Server {
	s := NewServer(emitter, store, logging.NewWithWriter("admin-test", io.Discard))
	return httptest.NewServer(s.Router(nil, nil))
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHandleEmit(t *testing.T) {
	emitter := &stubEmitter{}
	srv := newTestServer(emitter, delivery.NewMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/events", map[string]any{
		"type":      "client.created",
		"tenant_id": "t1",
		"data":      map[string]any{"id": 42},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	decodeBody(t, resp, &out)
	_, err := uuid.Parse(out["event_id"])
	assert.NoError(t, err)
	assert.Equal(t, "client.created", emitter.lastType)
	assert.Equal(t, "t1", emitter.lastTenant)
	assert.True(t, emitter.lastAsync, "async defaults to true")
}

func TestHandleEmitValidation(t *testing.T) {
	srv := newTestServer(&stubEmitter{}, delivery.NewMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/events", map[string]any{"tenant_id": "t1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(srv.URL+"/v1/events", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleEmitQueueFull(t *testing.T) {
	srv := newTestServer(&stubEmitter{err: delivery.ErrQueueFull}, delivery.NewMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/events", map[string]any{"type": "x", "tenant_id": "t1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleRetry(t *testing.T) {
	store := delivery.NewMemoryStore()
	srv := newTestServer(&stubEmitter{}, store)
	defer srv.Close()

	ev := event.New("client.created", "t1", nil, nil)
	endpointID := uuid.New()

	failed := delivery.NewDelivery(ev, endpointID)
	require.NoError(t, store.CreateDelivery(context.Background(), failed))
	failed.Status = delivery.StatusFailed
	failed.AttemptCount = 1
	require.NoError(t, store.Record(context.Background(), failed, delivery.Attempt{
		AttemptNumber: 1,
		Status:        delivery.StatusFailed,
	}))

	resp := postJSON(t, srv.URL+"/v1/deliveries/"+failed.ID.String()+"/retry", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	decodeBody(t, resp, &out)
	assert.Equal(t, true, out["requeued"])

	got, err := store.Get(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPending, got.Status)
}

func TestHandleRetryNotFound(t *testing.T) {
	srv := newTestServer(&stubEmitter{}, delivery.NewMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/deliveries/"+uuid.NewString()+"/retry", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleRetryDeliveredConflict(t *testing.T) {
	store := delivery.NewMemoryStore()
	srv := newTestServer(&stubEmitter{}, store)
	defer srv.Close()

	ev := event.New("client.created", "t1", nil, nil)
	d := delivery.NewDelivery(ev, uuid.New())
	require.NoError(t, store.CreateDelivery(context.Background(), d))

	now := time.Now().UTC()
	d.Status = delivery.StatusDelivered
	d.AttemptCount = 1
	d.DeliveredAt = &now
	require.NoError(t, store.Record(context.Background(), d, delivery.Attempt{
		AttemptNumber: 1,
		Status:        delivery.StatusDelivered,
	}))

	resp := postJSON(t, srv.URL+"/v1/deliveries/"+d.ID.String()+"/retry", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandleDeliveries(t *testing.T) {
	store := delivery.NewMemoryStore()
	srv := newTestServer(&stubEmitter{}, store)
	defer srv.Close()

	endpointID := uuid.New()
	ev := event.New("client.created", "t1", nil, nil)
	d := delivery.NewDelivery(ev, endpointID)
	require.NoError(t, store.CreateDelivery(context.Background(), d))

	now := time.Now().UTC()
	d.Status = delivery.StatusDelivered
	d.AttemptCount = 1
	d.DeliveredAt = &now
	require.NoError(t, store.Record(context.Background(), d, delivery.Attempt{
		DeliveryID:     d.ID,
		AttemptNumber:  1,
		ResponseStatus: 200,
		Status:         delivery.StatusDelivered,
	}))

	resp, err := http.Get(srv.URL + "/v1/endpoints/" + endpointID.String() + "/deliveries")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out deliveriesResponse
	decodeBody(t, resp, &out)
	assert.Equal(t, endpointID.String(), out.EndpointID)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, 1, out.Attempts[0].AttemptNumber)
	assert.EqualValues(t, 1, out.Stats.SuccessCount)
}

func TestHandleDeliveriesEmptyEndpoint(t *testing.T) {
	srv := newTestServer(&stubEmitter{}, delivery.NewMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/endpoints/" + uuid.NewString() + "/deliveries")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out deliveriesResponse
	decodeBody(t, resp, &out)
	assert.Empty(t, out.Attempts)
}

func TestHandleVerifySignature(t *testing.T) {
	srv := newTestServer(&stubEmitter{}, delivery.NewMemoryStore())
	defer srv.Close()

	payload := `{"hello":"world"}`
	sig := signature.Sign([]byte(payload), "s3cret")

	resp := postJSON(t, srv.URL+"/v1/signatures/verify", map[string]string{
		"payload":   payload,
		"secret":    "s3cret",
		"signature": sig,
	})
	var out map[string]bool
	decodeBody(t, resp, &out)
	assert.True(t, out["valid"])

	resp = postJSON(t, srv.URL+"/v1/signatures/verify", map[string]string{
		"payload":   payload,
		"secret":    "wrong",
		"signature": sig,
	})
	decodeBody(t, resp, &out)
	assert.False(t, out["valid"])
}

func TestHealthzRoute(t *testing.T) {
	srv := newTestServer(&stubEmitter{}, delivery.NewMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
