// Package syftbox implements the SyftBox Adapter: supervises the
// sync daemon (embedded stub or child process), exposes its state machine,
// and triggers non-blocking sync against the Vault's outbox/inbox tree. The
// adapter never mutates message or session files itself: TriggerSync runs
// the Vault's own Deliver step, whichever backend is selected.
package syftbox

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/OpenMined/biovault-desktop/core/internal/backoff"
	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// State is the daemon's lifecycle state as observed by the adapter.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

// Status is the wire shape of get_syftbox_state.
type Status struct {
	Running   bool   `json:"running"`
	Mode      State  `json:"mode"`
	Backend   string `json:"backend"`
	ClientURL string `json:"client_url,omitempty"`
	PID       int    `json:"pid,omitempty"`
	TxBytes   int64  `json:"tx_bytes"`
	RxBytes   int64  `json:"rx_bytes"`
	Error     string `json:"error,omitempty"`
}

// Config selects the adapter's backend and retry policy.
type Config struct {
	Backend      string // "embedded" or "process"
	BinaryPath   string // used when Backend == "process"
	BinaryArgs   []string
	StartRetries int
	DataDir      string
	Email        string
	ConfigPath   string
}

// Adapter owns the daemon lifecycle state machine and the queue watcher.
type Adapter struct {
	cfg     Config
	backend Backend

	mu     sync.Mutex
	state  State
	status Status

	watcher *QueueWatcher
}

// New builds an Adapter for cfg. Backend selection happens once at
// construction; switching backend requires a new Adapter rather than
// hot-swapping the running one.
func New(cfg Config) *Adapter {
	var backend Backend
	switch cfg.Backend {
	case "process":
		backend = newProcessBackend(cfg.BinaryPath, cfg.BinaryArgs)
	default:
		backend = embeddedBackend{}
	}
	if cfg.StartRetries <= 0 {
		cfg.StartRetries = 3
	}
	return &Adapter{
		cfg:     cfg,
		backend: backend,
		state:   StateStopped,
		status:  Status{Mode: StateStopped, Backend: backend.Name()},
		watcher: NewQueueWatcher(cfg.DataDir),
	}
}

// Start transitions stopped/error -> starting -> running, retrying the
// backend's Start up to cfg.StartRetries times (default 3) with exponential
// backoff.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateRunning || a.state == StateStarting {
		a.mu.Unlock()
		return nil
	}
	a.state = StateStarting
	a.status.Mode = StateStarting
	a.status.Error = ""
	a.mu.Unlock()

	retryCfg := backoff.DefaultConfig()
	retryCfg.MaxAttempts = a.cfg.StartRetries

	var pid int
	var clientURL string
	err := backoff.Retry(ctx, retryCfg, func(attempt int) error {
		var startErr error
		pid, clientURL, startErr = a.backend.Start(ctx)
		return startErr
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateError
		a.status.Mode = StateError
		a.status.Running = false
		a.status.Error = err.Error()
		return bverrors.Wrap(bverrors.KindDaemonUnavailable, "failed to start syftbox daemon", err)
	}
	a.state = StateRunning
	a.status = Status{
		Running:   true,
		Mode:      StateRunning,
		Backend:   a.backend.Name(),
		ClientURL: clientURL,
		PID:       pid,
	}
	if a.cfg.DataDir != "" {
		_ = a.watcher.Start()
	}
	return nil
}

// Stop transitions running/error -> stopping -> stopped.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateStopped {
		a.mu.Unlock()
		return nil
	}
	a.state = StateStopping
	a.status.Mode = StateStopping
	a.mu.Unlock()

	err := a.backend.Stop(ctx)
	a.watcher.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateError
		a.status.Mode = StateError
		a.status.Error = err.Error()
		return bverrors.Wrap(bverrors.KindIoError, "failed to stop syftbox daemon", err)
	}
	a.state = StateStopped
	a.status = Status{Mode: StateStopped, Backend: a.backend.Name()}
	return nil
}

// GetState returns the adapter's current status snapshot.
func (a *Adapter) GetState() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// TriggerSync is non-blocking: it starts delivery in the background
// and returns immediately. Callers observe progress via QueueStatus.
func (a *Adapter) TriggerSync() {
	go func() {
		delivered, err := vault.Deliver(a.cfg.DataDir)
		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.status.Error = err.Error()
			return
		}
		a.status.TxBytes += int64(delivered)
	}()
}

// QueueStatus aggregates the watcher's pending-file view with the
// websocket-equivalent connectivity flag (
// runtime.websocket.connected).
func (a *Adapter) QueueStatus() map[string]any {
	a.mu.Lock()
	running := a.state == StateRunning
	a.mu.Unlock()

	files := a.watcher.PendingFiles()
	return map[string]any{
		"sync": map[string]any{
			"summary": fmt.Sprintf("%d pending", len(files)),
			"files":   files,
		},
		"status": map[string]any{
			"runtime": map[string]any{
				"websocket": map[string]any{"connected": running},
			},
		},
	}
}

// ConfigInfo reports the daemon's configuration surface without exposing
// secret material, per get_syftbox_config_info shape.
func (a *Adapter) ConfigInfo() map[string]any {
	_, statErr := os.Stat(a.cfg.ConfigPath)
	authenticated := statErr == nil
	return map[string]any{
		"config_path":       a.cfg.ConfigPath,
		"data_dir":          a.cfg.DataDir,
		"is_authenticated":  authenticated,
		"has_access_token":  authenticated,
		"has_refresh_token": authenticated,
		"email":             a.cfg.Email,
		"server_url":        a.status.ClientURL,
	}
}
