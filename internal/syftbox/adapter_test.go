package syftbox

import (
	"context"
	"testing"
	"time"
)

func TestStartStopEmbeddedLifecycle(t *testing.T) {
	a := New(Config{Backend: "embedded"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := a.GetState()
	if !st.Running || st.Mode != StateRunning {
		t.Fatalf("state = %+v, want running", st)
	}

	if err := a.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	st = a.GetState()
	if st.Running || st.Mode != StateStopped {
		t.Fatalf("state = %+v, want stopped", st)
	}
}

func TestStartWithMissingProcessBinaryEntersErrorState(t *testing.T) {
	a := New(Config{Backend: "process", StartRetries: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := a.Start(ctx)
	if err == nil {
		t.Fatalf("expected start failure with no binary configured")
	}
	st := a.GetState()
	if st.Mode != StateError || st.Error == "" {
		t.Fatalf("state = %+v, want error with message", st)
	}
}

func TestStopIsIdempotentWhenAlreadyStopped(t *testing.T) {
	a := New(Config{Backend: "embedded"})
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("stop on already-stopped adapter should be a no-op: %v", err)
	}
}

func TestQueueStatusReflectsRunningState(t *testing.T) {
	a := New(Config{Backend: "embedded"})
	ctx := context.Background()

	before := a.QueueStatus()
	if before["status"].(map[string]any)["runtime"].(map[string]any)["websocket"].(map[string]any)["connected"] != false {
		t.Fatalf("expected disconnected before start")
	}

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	after := a.QueueStatus()
	if after["status"].(map[string]any)["runtime"].(map[string]any)["websocket"].(map[string]any)["connected"] != true {
		t.Fatalf("expected connected after start")
	}
}

func TestConfigInfoReportsUnauthenticatedWhenConfigMissing(t *testing.T) {
	a := New(Config{Backend: "embedded", ConfigPath: "/nonexistent/config.json"})
	info := a.ConfigInfo()
	if info["is_authenticated"] != false {
		t.Fatalf("expected unauthenticated for missing config path")
	}
}
