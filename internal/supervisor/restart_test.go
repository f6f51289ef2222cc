package supervisor

import (
	"context"
	"errors"
	"testing"

	"github.com/OpenMined/biovault-desktop/core/internal/bridge"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

func TestRestartForProfileSwapsAdapter(t *testing.T) {
	oldAdapter := syftbox.New(syftbox.Config{Backend: "embedded"})
	if err := oldAdapter.Start(context.Background()); err != nil {
		t.Fatalf("oldAdapter.Start: %v", err)
	}
	oldSrv := newTestServer(t)

	base := New(&fakeCounter{}, oldAdapter, newTestAuditLogger(t), nil)

	var rebuiltHome string
	newAdapter := syftbox.New(syftbox.Config{Backend: "embedded"})
	newSrv := newTestServer(t)

	ps := NewProfileSupervisor(base, oldSrv, oldAdapter, func(ctx context.Context, home string) (*bridge.Server, *syftbox.Adapter, error) {
		rebuiltHome = home
		return newSrv, newAdapter, nil
	})

	if err := ps.RestartForProfile("/tmp/profile-b"); err != nil {
		t.Fatalf("RestartForProfile: %v", err)
	}
	if rebuiltHome != "/tmp/profile-b" {
		t.Errorf("rebuild home = %q, want /tmp/profile-b", rebuiltHome)
	}

	curSrv, curAdapter := ps.Current()
	if curAdapter != newAdapter {
		t.Error("Current() should return the rebuilt adapter after restart")
	}
	if curSrv != newSrv {
		t.Error("Current() should return the rebuilt server after restart")
	}
	if oldAdapter.GetState().Running {
		t.Error("old adapter should be stopped after restart")
	}
	if !newAdapter.GetState().Running {
		t.Error("new adapter should be running after restart")
	}
}

func TestRestartForProfilePropagatesRebuildError(t *testing.T) {
	oldAdapter := syftbox.New(syftbox.Config{Backend: "embedded"})
	oldSrv := newTestServer(t)
	base := New(&fakeCounter{}, oldAdapter, newTestAuditLogger(t), nil)

	boom := errors.New("boom")
	ps := NewProfileSupervisor(base, oldSrv, oldAdapter, func(ctx context.Context, home string) (*bridge.Server, *syftbox.Adapter, error) {
		return nil, nil, boom
	})

	if err := ps.RestartForProfile("/tmp/profile-c"); !errors.Is(err, boom) {
		t.Errorf("RestartForProfile error = %v, want %v", err, boom)
	}
}
