package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
		errSubstr  string
	}{
		{
			name:       "success with body",
			statusCode: http.StatusOK,
			body:       `{"event_id":"abc"}`,
			wantErr:    false,
		},
		{
			name:       "accepted",
			statusCode: http.StatusAccepted,
			body:       `{"event_id":"abc"}`,
			wantErr:    false,
		},
		{
			name:       "error with message",
			statusCode: http.StatusNotFound,
			body:       `{"error":"delivery not found"}`,
			wantErr:    true,
			errSubstr:  "delivery not found",
		},
		{
			name:       "error without message",
			statusCode: http.StatusInternalServerError,
			body:       `oops`,
			wantErr:    true,
			errSubstr:  "server returned 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}

			var out map[string]any
			err = decodeResponse(resp, &out)
			if (err != nil) != tt.wantErr {
				t.Errorf("decodeResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil && !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("decodeResponse() error = %q, want substring %q", err.Error(), tt.errSubstr)
			}
		})
	}
}

func TestMakeRequest(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	oldAddr := serverAddr
	serverAddr = strings.TrimPrefix(srv.URL, "http://")
	defer func() { serverAddr = oldAddr }()

	resp, err := makeRequest(http.MethodPost, "/v1/events", map[string]string{"type": "x"})
	if err != nil {
		t.Fatalf("makeRequest() error = %v", err)
	}
	resp.Body.Close()

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want %q", gotMethod, http.MethodPost)
	}
	if gotPath != "/v1/events" {
		t.Errorf("path = %q, want %q", gotPath, "/v1/events")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", gotContentType, "application/json")
	}
}
