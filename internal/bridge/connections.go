package bridge

import (
	"sync"
	"sync/atomic"
)

// connTracker tracks active bridge connections, globally and per client
// address. The bridge has no gateway to dial, but still needs the same
// accept-and-atomically-admit bookkeeping to enforce MaxConnections and
// MaxConnectionsPerIP.
type connTracker struct {
	active atomic.Int64
	total  atomic.Int64

	mu        sync.Mutex
	perClient map[string]int
}

func newConnTracker() *connTracker {
	return &connTracker{perClient: make(map[string]int)}
}

// TryAdmit atomically checks and increments connection counters, returning
// "" if admitted or a reason ("max_connections" / "max_connections_per_ip")
// if rejected. Checking and incrementing atomically avoids a TOCTOU race
// between two connections arriving at the same instant.
func (t *connTracker) TryAdmit(client string, maxTotal, maxPerClient int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(t.active.Load()) >= maxTotal {
		return "max_connections"
	}
	if t.perClient[client] >= maxPerClient {
		return "max_connections_per_ip"
	}
	t.active.Add(1)
	t.total.Add(1)
	t.perClient[client]++
	return ""
}

func (t *connTracker) Release(client string) {
	t.active.Add(-1)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perClient[client]--
	if t.perClient[client] <= 0 {
		delete(t.perClient, client)
	}
}

func (t *connTracker) Count() int { return int(t.active.Load()) }
