package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestSetup_Disabled(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tp == nil {
		t.Fatal("expected a no-op provider")
	}
	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("no-op provider must not produce valid spans")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_Enabled(t *testing.T) {
	ctx := context.Background()
	tp, shutdown, err := Setup(ctx, Config{Endpoint: "http://127.0.0.1:4318", ServiceName: "modhost-test"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := tp.Tracer("test").Start(ctx, "op")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span")
	}
	span.End()

	// nothing listens on the endpoint; only check shutdown returns
	sctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_ = shutdown(sctx)
}

func TestConfig_Enabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config must be disabled")
	}
	if !(Config{Endpoint: "http://collector:4318"}).Enabled() {
		t.Error("endpoint enables tracing")
	}
}
