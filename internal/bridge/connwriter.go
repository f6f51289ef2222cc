package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// connWriter serializes every frame (streamed Event or terminal Response)
// written to one WebSocket connection through a single goroutine, guarding
// each connection's socket writes behind one forwarding goroutine: concurrent
// command
// handlers must never write to the same *websocket.Conn from two goroutines
// at once, and funneling them through one channel also gives us frame
// ordering per connection for free.
type connWriter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	frames       chan any
	done         chan struct{}
}

func newConnWriter(conn *websocket.Conn, writeTimeout time.Duration) *connWriter {
	w := &connWriter{
		conn:         conn,
		writeTimeout: writeTimeout,
		frames:       make(chan any, 64),
		done:         make(chan struct{}),
	}
	go w.run()
	return w
}

// Emit implements eventbus.Emitter: it queues an Event frame for the
// connection's writer goroutine.
func (w *connWriter) Emit(requestID int64, frame eventbus.Frame) {
	w.send(Event{ID: requestID, Type: string(frame.Kind), Data: frame.Data})
}

// WriteResponse queues the terminal Response for a request.
func (w *connWriter) WriteResponse(resp Response) {
	w.send(resp)
}

func (w *connWriter) send(frame any) {
	select {
	case w.frames <- frame:
	case <-w.done:
	}
}

func (w *connWriter) run() {
	defer close(w.done)
	for frame := range w.frames {
		payload, err := json.Marshal(frame)
		if err != nil {
			slog.Error("bridge: failed to marshal frame", "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
		err = w.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Debug("bridge: connection write failed, stopping writer", "error", err)
			return
		}
	}
}

// Close stops accepting new frames once pending ones have been flushed by
// the caller's own dispatch bookkeeping; the run goroutine exits when the
// channel is closed.
func (w *connWriter) Close() {
	close(w.frames)
	<-w.done
}
