package main

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/camayank/hookflow/internal/config"
	"github.com/camayank/hookflow/internal/logging"
	"github.com/camayank/hookflow/internal/signature"
)

const sigHeader = "X-Webhook-Signature"

// receiver is a debugging endpoint for local delivery runs. It verifies
// signatures against a configured secret and can simulate a flaky
// consumer by failing the first N requests.
type receiver struct {
	secret     string
	failFirstN int64
	reqCount   atomic.Int64
	logger     *logging.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("fake-receiver").Plain().WithError(err).Fatal("config load failed")
	}
	logger := logging.New("fake-receiver")

	rcv := &receiver{
		secret:     cfg.FakeReceiver.EndpointSecret,
		failFirstN: int64(cfg.FakeReceiver.FailFirstN),
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/hook", rcv.handleHook)

	srv := &http.Server{
		Addr:         cfg.FakeReceiver.Port,
		Handler:      mux,
		ReadTimeout:  cfg.FakeReceiver.ReadTimeout,
		WriteTimeout: cfg.FakeReceiver.WriteTimeout,
		IdleTimeout:  cfg.FakeReceiver.IdleTimeout,
	}
	logger.Plain().WithField("addr", srv.Addr).Info("fake-receiver listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Plain().WithError(err).Fatal("fake-receiver server failed")
	}
}

func (rc *receiver) handleHook(w http.ResponseWriter, r *http.Request) {
	n := rc.reqCount.Add(1)
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	// The signature covers the exact bytes received, nothing else.
	if rc.secret != "" {
		if !signature.Verify(body, r.Header.Get(sigHeader), rc.secret) {
			rc.logger.Plain().WithField("event_type", r.Header.Get("X-Webhook-Event")).Warn("signature verification failed")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	// Simulate flakiness: first N requests -> 500
	if n <= rc.failFirstN {
		rc.logger.WithFields(map[string]any{
			"request": n,
			"of":      rc.failFirstN,
			"body":    truncate(string(body), 160),
		}).Warn("simulated failure")
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	rc.logger.WithFields(map[string]any{
		"event_type": r.Header.Get("X-Webhook-Event"),
		"event_id":   r.Header.Get("X-Webhook-ID"),
		"body":       truncate(string(body), 160),
	}).Info("webhook received")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`ok`))
}

// truncate shortens s to n bytes, adding an ellipsis when cut
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
