package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/security"
)

// handleHTTPRPC is the non-streaming fallback for callers that cannot hold
// a WebSocket open: one Request in, one Response out, over plain HTTP.
// Commands that StreamsEvents still run to completion, but their
// intermediate frames are simply dropped since there is no socket to carry
// them.
func (s *Server) handleHTTPRPC(w http.ResponseWriter, r *http.Request) {
	client := s.clientAddr(r)
	if s.Config.Security.TailscaleOnly && !security.IsTailscaleIP(r.RemoteAddr) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !s.checkAuth(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponseMalformed())
		return
	}

	resp := s.runHTTP(r.Context(), req, client)
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// runHTTP is run's logic with a discarding event emitter, since HTTP has no
// channel to stream events back on before the terminal response.
func (s *Server) runHTTP(ctx context.Context, req Request, client string) Response {
	start := time.Now()
	resp, cmdErr := s.run(ctx, req, discardEmitter{})
	if s.Audit != nil {
		success := cmdErr == nil
		var errMsg string
		if cmdErr != nil {
			errMsg = cmdErr.Error()
		}
		s.Audit.Append(auditEntry(req, start, success, errMsg, client))
	}
	if s.Metrics != nil {
		s.Metrics.CommandsTotal.WithLabelValues(req.Cmd).Inc()
		s.Metrics.CommandDuration.WithLabelValues(req.Cmd).Observe(time.Since(start).Seconds())
	}
	return resp
}

// handleSchema serves GET /schema: with no ?name query param it returns the
// full registry schema (every CommandDescriptor), mirroring get_schema
// called with no name over the WebSocket transport; with ?name=foo it
// returns just that command's descriptor.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	args := map[string]any{}
	if name := r.URL.Query().Get("name"); name != "" {
		args["name"] = name
	}
	req := Request{Cmd: "get_schema", Args: args}
	resp := s.runHTTP(r.Context(), req, s.clientAddr(r))
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	req := Request{Cmd: "discover"}
	resp := s.runHTTP(r.Context(), req, s.clientAddr(r))
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// discardEmitter drops every event frame; HTTP commands get one since
// there is no socket to carry streamed events back ahead of the terminal
// response.
type discardEmitter struct{}

func (discardEmitter) Emit(requestID int64, frame eventbus.Frame) {}
