// Package eventbus implements the per-request event streaming channel: a
// Sink bound to one request id, delivering progress/log/status frames that
// must precede the eventual terminal reply on the same connection. This
// generalizes a single send-side pattern that would otherwise write
// directly to a *websocket.Conn per connection into a per-request
// abstraction, since one bridge connection here hosts many concurrent
// request ids.
package eventbus

import "context"

// Kind is the event frame type carried on a streamed event frame.
type Kind string

const (
	KindProgress Kind = "progress"
	KindLog      Kind = "log"
	KindStatus   Kind = "status"
)

// Frame is one event frame for a given request id.
type Frame struct {
	Kind Kind
	Data any
}

// Emitter is implemented by the transport layer: it knows how to place a
// Frame on the wire for a specific request id, preserving ordering.
type Emitter interface {
	Emit(requestID int64, frame Frame)
}

// Sink is the handle a command handler uses to stream events back to the
// connection that issued its request. Handlers must only call it from a
// single goroutine per sink.
type Sink struct {
	requestID int64
	emitter   Emitter
	ctx       context.Context
}

// New binds a Sink to requestID, delivering frames through emitter.
// ctx.Done() fires when the owning connection is closed or the handler's
// budget expires, per cancellation rule.
func New(ctx context.Context, requestID int64, emitter Emitter) Sink {
	return Sink{requestID: requestID, emitter: emitter, ctx: ctx}
}

// Progress emits a progress frame.
func (s Sink) Progress(data any) {
	s.emit(KindProgress, data)
}

// Log emits a log frame.
func (s Sink) Log(message string, fields map[string]any) {
	payload := map[string]any{"message": message}
	for k, v := range fields {
		payload[k] = v
	}
	s.emit(KindLog, payload)
}

// Status emits a status frame.
func (s Sink) Status(data any) {
	s.emit(KindStatus, data)
}

func (s Sink) emit(kind Kind, data any) {
	if s.emitter == nil {
		return
	}
	select {
	case <-s.ctx.Done():
		// Connection gone or handler cancelled; drop the frame rather than
		// block the handler.
		return
	default:
		s.emitter.Emit(s.requestID, Frame{Kind: kind, Data: data})
	}
}

// Done returns a channel closed when the sink's request should stop:
// connection closed, or the handler's declared timeout budget expired.
func (s Sink) Done() <-chan struct{} {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.Done()
}

// Cancelled reports whether Done() has already fired.
func (s Sink) Cancelled() bool {
	if s.ctx == nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Noop is a Sink with no emitter, useful for handlers invoked outside a
// bridge connection (e.g. direct library calls from the desktop shell, or
// tests) that still need to satisfy the Handler signature.
func Noop(ctx context.Context) Sink {
	return Sink{ctx: ctx}
}
