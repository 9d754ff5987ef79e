package telemetry

import (
	"context"
	"testing"
)

func TestDefaultConfigFallsBackToLocalEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.OTLPEndpoint == "" {
		t.Fatal("expected a non-empty default OTLP endpoint")
	}
	if cfg.ServiceName == "" {
		t.Fatal("expected a non-empty default service name")
	}
}

func TestStripSchemeRemovesHTTPPrefixes(t *testing.T) {
	cases := map[string]string{
		"http://localhost:4318":  "localhost:4318",
		"https://otel.internal":  "otel.internal",
		"localhost:4318":         "localhost:4318",
	}
	for input, want := range cases {
		if got := stripScheme(input); got != want {
			t.Fatalf("stripScheme(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewProviderDisabledSkipsExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error constructing disabled provider: %v", err)
	}
	if provider.meterProvider != nil {
		t.Fatal("expected a disabled provider to have a nil meter provider")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}
