package bridge

import (
	"context"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/registry"
)

// dispatch validates, authorizes, looks up, and runs one Request, writing
// its terminal Response (and any streamed events along the way) through w.
// Each call runs in its own goroutine so long-running commands never block
// other requests on the same connection; w serializes the resulting
// writes back onto the wire.
func (s *Server) dispatch(ctx context.Context, req Request, w *connWriter, peerAddr string) {
	start := time.Now()

	resp, cmdErr := s.run(ctx, req, w)
	w.WriteResponse(resp)

	success := cmdErr == nil
	var errMsg, kind string
	if cmdErr != nil {
		errMsg = cmdErr.Error()
		kind = string(bverrors.AsKind(cmdErr))
	}
	if s.Metrics != nil {
		s.Metrics.CommandsTotal.WithLabelValues(req.Cmd).Inc()
		s.Metrics.CommandDuration.WithLabelValues(req.Cmd).Observe(time.Since(start).Seconds())
		if !success {
			s.Metrics.CommandErrorsTotal.WithLabelValues(req.Cmd, kind).Inc()
		}
	}
	if s.Audit != nil {
		s.Audit.Append(auditEntry(req, start, success, errMsg, peerAddr))
	}
}

// run validates the request, gates it on policy (enabled/blocklist) and
// auth, only then looks it up in the registry, and finally executes its
// handler. It returns both the wire Response and the underlying error (nil
// on success) so callers needing the full error detail for audit/metrics
// don't have to parse it back out of the serialized Response.
func (s *Server) run(ctx context.Context, req Request, emitter eventbus.Emitter) (Response, error) {
	if req.Cmd == "" {
		err := bverrors.New(bverrors.KindInvalidRequest, "Missing cmd")
		return errorResponse(req.ID, err), err
	}

	if !s.Policy().Allowed(req.Cmd) {
		err := bverrors.New(bverrors.KindBlocked, "Blocked")
		return errorResponse(req.ID, err), err
	}

	if s.Config.Security.AuthToken != "" && !s.tokenMatch(req.Token) {
		err := bverrors.New(bverrors.KindUnauthorized, "Unauthorized")
		return errorResponse(req.ID, err), err
	}

	cmd, ok := s.Registry.Lookup(req.Cmd)
	if !ok {
		err := bverrors.New(bverrors.KindNotFound, "Unhandled command: "+req.Cmd)
		return errorResponse(req.ID, err), err
	}

	timeout := s.Config.Bridge.RequestTimeout
	if cmd.StreamsEvents {
		timeout = s.Config.Bridge.LongTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := registry.NormalizeArgs(cmd, req.Args)
	sink := eventbus.New(cmdCtx, req.ID, emitter)

	result, err := cmd.Handler(cmdCtx, args, sink)
	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			wrapped := bverrors.Wrap(bverrors.KindTimeout, "Command timed out", err)
			return errorResponse(req.ID, wrapped), wrapped
		}
		if cmdCtx.Err() == context.Canceled {
			wrapped := bverrors.Wrap(bverrors.KindCancelled, "Command cancelled", err)
			return errorResponse(req.ID, wrapped), wrapped
		}
		return errorResponse(req.ID, err), err
	}
	return Response{ID: req.ID, Result: result}, nil
}

// errorResponse builds the wire Response for a failed command: the error
// field is the bare message a *bverrors.Error carries (e.g. "Unauthorized",
// "Blocked", "Unhandled command: foo"), not a composite "kind: message"
// string, so literal comparisons against known failure strings hold.
func errorResponse(id int64, err error) Response {
	return Response{ID: id, Error: bverrors.MessageOf(err)}
}
