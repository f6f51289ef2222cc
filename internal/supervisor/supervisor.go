// Package supervisor owns process-lifetime concerns that don't belong to any
// single component: the auto-refresh ticker that only runs while a client is
// attached, profile-switch teardown/rebuild of the bridge and sync adapter,
// and the ordered shutdown sequence run on SIGTERM/SIGINT.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/bridge"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

const autoRefreshInterval = 10 * time.Second

// AttachedClientCounter is the seam onto the bridge's live connection count.
type AttachedClientCounter interface {
	AttachedClients() int
}

// RefreshFunc performs one tick of auto-refresh work (e.g. syncing and
// re-listing threads/sessions) while at least one client is attached.
type RefreshFunc func(ctx context.Context)

// Supervisor drives the auto-refresh ticker and the shutdown sequence for
// one running bridge + sync adapter pair.
type Supervisor struct {
	conns   AttachedClientCounter
	adapter *syftbox.Adapter
	audit   *audit.Logger
	refresh RefreshFunc

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New returns a Supervisor. refresh may be nil, in which case auto-refresh
// ticks are skipped (the caller only wants shutdown sequencing).
func New(conns AttachedClientCounter, adapter *syftbox.Adapter, auditLogger *audit.Logger, refresh RefreshFunc) *Supervisor {
	return &Supervisor{conns: conns, adapter: adapter, audit: auditLogger, refresh: refresh}
}

// Run starts the auto-refresh loop; it blocks until Stop is called or ctx is
// cancelled. Call it in its own goroutine.
func (s *Supervisor) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	defer close(s.done)

	if s.refresh == nil {
		select {
		case <-ctx.Done():
		case <-s.stop:
		}
		return
	}

	ticker := time.NewTicker(autoRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if s.conns.AttachedClients() == 0 {
				continue
			}
			tickCtx, cancel := context.WithTimeout(ctx, autoRefreshInterval)
			s.refresh(tickCtx)
			cancel()
		}
	}
}

// Stop halts the auto-refresh loop and waits for Run to return.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()

	close(stop)
	<-done
}

// Shutdown runs the ordered shutdown sequence: stop accepting new bridge
// work and drain in-flight handlers up to drainTimeout, stop the sync
// daemon, flush the audit log, then return. Handlers that exceed the grace
// period are abandoned; their sinks observe context cancellation.
func Shutdown(ctx context.Context, srv *bridge.Server, adapter *syftbox.Adapter, auditLogger *audit.Logger, drainTimeout time.Duration) {
	srv.StartDrain()

	deadline := time.After(drainTimeout)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
drainLoop:
	for {
		select {
		case <-deadline:
			if remaining := srv.AttachedClients(); remaining > 0 {
				slog.Warn("drain timeout reached, abandoning remaining connections", "remaining", remaining)
			}
			break drainLoop
		case <-tick.C:
			if srv.AttachedClients() == 0 {
				break drainLoop
			}
		}
	}
	srv.Close()

	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := adapter.Stop(stopCtx); err != nil {
		slog.Warn("syftbox adapter stop failed", "error", err)
	}

	auditLogger.Close()
	slog.Info("shutdown complete")
}
