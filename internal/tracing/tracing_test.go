package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestGetOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{name: "default", env: "", want: "tempo:4318"},
		{name: "plain host port", env: "collector:4318", want: "collector:4318"},
		{name: "strips http scheme", env: "http://collector:4318", want: "collector:4318"},
		{name: "strips https scheme", env: "https://collector:4318", want: "collector:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.env)
			if got := getOTLPEndpoint(); got != tt.want {
				t.Errorf("getOTLPEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	// All helpers must be safe before InitTracing runs (noop provider).
	ctx := context.Background()

	ctx, span := StartSpan(ctx, "test.span", attribute.String("k", "v"))
	defer span.End()

	AddSpanEvent(ctx, "event", attribute.Int("n", 1))
	SetSpanError(ctx, nil)

	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() on empty context = %q, want empty", id)
	}
}

func TestGetInstanceID(t *testing.T) {
	t.Setenv("HOSTNAME", "")
	t.Setenv("POD_NAME", "worker-0")
	if got := getInstanceID(); got != "worker-0" {
		t.Errorf("getInstanceID() = %q, want %q", got, "worker-0")
	}
}
