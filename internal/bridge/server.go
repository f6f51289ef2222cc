package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/config"
	"github.com/OpenMined/biovault-desktop/core/internal/metrics"
	"github.com/OpenMined/biovault-desktop/core/internal/registry"
	"github.com/OpenMined/biovault-desktop/core/internal/security"
)

// Server is the Agent Bridge Transport: a WebSocket endpoint for
// bidirectional request/event/response traffic, plus an HTTP fallback for
// callers that cannot hold a socket open.
type Server struct {
	Config   *config.Config
	Registry *registry.Registry
	PolicyFn func() registry.Policy
	Metrics  *metrics.Metrics // optional, nil if disabled
	Audit    *audit.Logger    // optional, nil if disabled

	conns *connTracker

	// drainCtx is cancelled when the server begins draining connections.
	drainCtx    context.Context
	drainCancel context.CancelFunc

	// cmdLimiter is keyed by connection id rather than by client IP: one
	// bridge connection carries many concurrent commands, so the key
	// that needs throttling is the connection, not the address it came from.
	cmdLimiter *security.RateLimiter
	connMu     sync.Mutex
	nextConn   int64
}

// NewServer builds a Server bound to cfg and reg. policyFn is called on
// every request so a live policy change (e.g. a blocklist edit) takes
// effect without restarting the listener.
func NewServer(cfg *config.Config, reg *registry.Registry, policyFn func() registry.Policy) *Server {
	drainCtx, drainCancel := context.WithCancel(context.Background())
	rl := cfg.Security.RateLimit
	return &Server{
		Config:      cfg,
		Registry:    reg,
		PolicyFn:    policyFn,
		conns:       newConnTracker(),
		drainCtx:    drainCtx,
		drainCancel: drainCancel,
		cmdLimiter:  security.NewRateLimiter(rate.Limit(rl.CommandsPerSecond), rl.Burst),
	}
}

// Close releases background resources (the rate limiter's cleanup
// goroutine) that outlive any single connection.
func (s *Server) Close() {
	s.cmdLimiter.Stop()
}

func (s *Server) Policy() registry.Policy { return s.PolicyFn() }

// AttachedClients reports the number of currently connected bridge clients,
// used by internal/supervisor to gate its auto-refresh ticker.
func (s *Server) AttachedClients() int { return s.conns.Count() }

// StartDrain signals all active connections to begin graceful shutdown.
func (s *Server) StartDrain() { s.drainCancel() }

// Router builds the HTTP mux: WebSocket upgrade at "/", HTTP RPC fallback,
// reflection endpoints, and the Prometheus scrape endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/rpc", s.handleHTTPRPC).Methods(http.MethodPost)
	r.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	r.HandleFunc("/commands", s.handleCommands).Methods(http.MethodGet)
	if s.Config.Monitoring.MetricsEnabled {
		r.Handle(s.Config.Monitoring.MetricsEndpoint, promhttp.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/", s.handleWS)
	return r
}

func (s *Server) clientAddr(r *http.Request) string {
	return security.ExtractClientIP(r.RemoteAddr)
}

func (s *Server) checkAuth(r *http.Request) bool {
	if s.Config.Security.AuthToken == "" {
		return true
	}
	token := security.ExtractBearerToken(r.Header.Get("Authorization"))
	return security.TokenMatch(token, s.Config.Security.AuthToken)
}

func (s *Server) tokenMatch(provided string) bool {
	return security.TokenMatch(provided, s.Config.Security.AuthToken)
}

// handleWS accepts a WebSocket connection and runs its read/dispatch loop
// until the client disconnects or the server drains.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	client := s.clientAddr(r)

	if s.Config.Security.TailscaleOnly && !security.IsTailscaleIP(r.RemoteAddr) {
		slog.Warn("bridge: rejected non-Tailscale connection", "remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !s.checkAuth(r) {
		slog.Warn("bridge: rejected invalid token", "client", client)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if reason := s.conns.TryAdmit(client, s.Config.Security.MaxConnections, s.Config.Security.MaxConnectionsPerIP); reason != "" {
		status := http.StatusServiceUnavailable
		if reason == "max_connections_per_ip" {
			status = http.StatusTooManyRequests
		}
		slog.Warn("bridge: connection rejected", "reason", reason, "client", client)
		http.Error(w, "Too Many Connections", status)
		return
	}
	if s.Metrics != nil {
		s.Metrics.ConnectionsTotal.Inc()
		s.Metrics.ActiveConnections.Inc()
	}
	defer func() {
		s.conns.Release(client)
		if s.Metrics != nil {
			s.Metrics.ActiveConnections.Dec()
		}
	}()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("bridge: failed to accept connection", "error", err)
		return
	}
	conn.SetReadLimit(s.Config.Bridge.MaxMessageSize)

	connID := s.nextConnID()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	writer := newConnWriter(conn, s.Config.Bridge.WriteTimeout)
	defer writer.Close()

	if s.Config.Bridge.PingInterval > 0 {
		go s.keepAlive(connCtx, conn, connCancel)
	}
	go func() {
		select {
		case <-s.drainCtx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		case <-connCtx.Done():
		}
	}()

	var wg sync.WaitGroup
	for {
		readCtx, readCancel := context.WithTimeout(connCtx, s.Config.Bridge.ReadTimeout)
		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			slog.Debug("bridge: connection read stopped", "client", client, "reason", err)
			break
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			writer.WriteResponse(errorResponseMalformed())
			continue
		}

		if s.Config.Security.RateLimit.Enabled && !s.allowCommand(connID) {
			writer.WriteResponse(Response{ID: req.ID, Error: "Rate limit exceeded"})
			continue
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			s.dispatch(connCtx, req, writer, client)
		}(req)
	}
	connCancel()
	wg.Wait()
}

func errorResponseMalformed() Response {
	return Response{Error: "Malformed request envelope"}
}

func (s *Server) keepAlive(ctx context.Context, conn *websocket.Conn, onFail context.CancelFunc) {
	ticker := time.NewTicker(s.Config.Bridge.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.Config.Bridge.PongTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.Debug("bridge: keepalive ping failed, closing connection", "error", err)
				conn.Close(websocket.StatusGoingAway, "keepalive timeout")
				onFail()
				return
			}
		}
	}
}

func (s *Server) nextConnID() string {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.nextConn++
	return strconv.FormatInt(s.nextConn, 10)
}

func (s *Server) allowCommand(connID string) bool {
	return s.cmdLimiter.Allow(connID)
}
