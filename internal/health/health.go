// Package health serves a small JSON health endpoint for local monitoring
// tools, separate from the Agent Bridge's own listener so a stuck bridge
// connection never blocks a liveness probe.
package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/metrics"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

// Response is the JSON response from the /health endpoint.
type Response struct {
	Status            string   `json:"status"`
	Uptime            string   `json:"uptime"`
	ActiveConnections int      `json:"active_connections"`
	SyftboxRunning    bool     `json:"syftbox_running"`
	Version           string   `json:"version"`
	Timestamp         string   `json:"timestamp"`
	Details           *Details `json:"details,omitempty"`
}

// Details contains extended health information.
type Details struct {
	SyftboxState string  `json:"syftbox_state"`
	MemoryMB     float64 `json:"memory_mb"`
}

// ConnectionCounter is the seam onto the bridge's live connection count.
type ConnectionCounter interface {
	AttachedClients() int
}

// Handler serves the health check endpoint.
type Handler struct {
	startTime time.Time
	conns     ConnectionCounter
	adapter   *syftbox.Adapter
	metrics   *metrics.Metrics // optional, nil if metrics disabled
	version   string
	detailed  bool
}

// NewHandler creates a new health check handler.
func NewHandler(conns ConnectionCounter, adapter *syftbox.Adapter, version string, detailed bool) *Handler {
	return &Handler{
		startTime: time.Now(),
		conns:     conns,
		adapter:   adapter,
		version:   version,
		detailed:  detailed,
	}
}

// SetMetrics sets the optional Prometheus metrics.
func (h *Handler) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// ServeHTTP handles health check requests. The health listener runs on its
// own loopback address, separate from the bridge listener, so local
// monitoring tools can check liveness without going through the bridge's
// own admission/auth path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := h.adapter.GetState()

	if h.metrics != nil {
		var code float64 // syftbox.StateStopped
		switch state.Mode {
		case syftbox.StateStarting:
			code = 1
		case syftbox.StateRunning:
			code = 2
		case syftbox.StateStopping:
			code = 3
		case syftbox.StateError:
			code = 4
		}
		h.metrics.SyftboxState.Set(code)
	}

	status := "ok"
	httpCode := http.StatusOK
	if !state.Running {
		status = "degraded"
		httpCode = http.StatusOK // syftbox being stopped is not itself an outage
	}

	resp := Response{
		Status:            status,
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		ActiveConnections: h.conns.AttachedClients(),
		SyftboxRunning:    state.Running,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}

	if h.detailed {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		resp.Version = h.version
		resp.Details = &Details{
			SyftboxState: string(state.Mode),
			MemoryMB:     float64(memStats.Alloc) / 1024 / 1024,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(resp)
}
