package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/bridge"
	"github.com/OpenMined/biovault-desktop/core/internal/config"
	"github.com/OpenMined/biovault-desktop/core/internal/registry"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

type fakeCounter struct{ n int32 }

func (f *fakeCounter) AttachedClients() int { return int(atomic.LoadInt32(&f.n)) }

func newTestServer(t *testing.T) *bridge.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	reg := registry.New(nil)
	return bridge.NewServer(cfg, reg, func() registry.Policy { return registry.Policy{Enabled: true} })
}

func newTestAuditLogger(t *testing.T) *audit.Logger {
	t.Helper()
	l, err := audit.New(t.TempDir())
	if err != nil {
		t.Fatalf("audit.New: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRunSkipsTicksWithNoAttachedClients(t *testing.T) {
	var ticks int32
	counter := &fakeCounter{n: 0}
	sup := New(counter, syftbox.New(syftbox.Config{Backend: "embedded"}), newTestAuditLogger(t), func(ctx context.Context) {
		atomic.AddInt32(&ticks, 1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	if got := atomic.LoadInt32(&ticks); got != 0 {
		t.Errorf("refresh ran %d times with no attached clients, want 0", got)
	}
}

func TestStopHaltsRunPromptly(t *testing.T) {
	counter := &fakeCounter{n: 0}
	sup := New(counter, syftbox.New(syftbox.Config{Backend: "embedded"}), newTestAuditLogger(t), nil)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestShutdownDrainsAndStopsAdapter(t *testing.T) {
	srv := newTestServer(t)
	adapter := syftbox.New(syftbox.Config{Backend: "embedded"})
	if err := adapter.Start(context.Background()); err != nil {
		t.Fatalf("adapter.Start: %v", err)
	}
	// Shutdown itself closes the audit logger, so it is built without the
	// usual t.Cleanup(Close) to avoid a double-close panic.
	auditLogger, err := audit.New(t.TempDir())
	if err != nil {
		t.Fatalf("audit.New: %v", err)
	}

	Shutdown(context.Background(), srv, adapter, auditLogger, 200*time.Millisecond)

	state := adapter.GetState()
	if state.Running {
		t.Error("adapter should be stopped after Shutdown")
	}
}
