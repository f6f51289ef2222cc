package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/bridge"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

// RebuildFunc constructs a fresh bridge server and sync adapter rooted at
// home, including re-binding the bridge's listeners. It is supplied by the
// process entry point, which is the only place that knows how to wire a
// profile's stores (vault, sessions, registry) from scratch.
type RebuildFunc func(ctx context.Context, home string) (*bridge.Server, *syftbox.Adapter, error)

// ProfileSupervisor extends Supervisor with the ability to tear down and
// rebuild the running bridge/adapter pair when the active profile changes,
// implementing registry.ProfileRestarter.
type ProfileSupervisor struct {
	*Supervisor

	mu      sync.Mutex
	rebuild RebuildFunc
	srv     *bridge.Server
	adapter *syftbox.Adapter
}

// NewProfileSupervisor wraps an already-running Supervisor with profile
// restart support. srv and adapter are the pair currently in service.
func NewProfileSupervisor(base *Supervisor, srv *bridge.Server, adapter *syftbox.Adapter, rebuild RebuildFunc) *ProfileSupervisor {
	return &ProfileSupervisor{Supervisor: base, rebuild: rebuild, srv: srv, adapter: adapter}
}

// Current returns the bridge server and adapter currently in service.
func (p *ProfileSupervisor) Current() (*bridge.Server, *syftbox.Adapter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.srv, p.adapter
}

// RestartForProfile drains and replaces the running bridge/adapter pair with
// one rooted at home. A switch requires a new Adapter rather than
// hot-swapping the running one, since the backend selection and client
// handle are fixed at construction.
func (p *ProfileSupervisor) RestartForProfile(home string) error {
	p.mu.Lock()
	oldSrv, oldAdapter := p.srv, p.adapter
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if oldSrv != nil {
		oldSrv.StartDrain()
		oldSrv.Close()
	}
	if oldAdapter != nil {
		_ = oldAdapter.Stop(ctx)
	}

	newSrv, newAdapter, err := p.rebuild(ctx, home)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.srv = newSrv
	p.adapter = newAdapter
	p.mu.Unlock()

	return newAdapter.Start(ctx)
}
