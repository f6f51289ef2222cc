package eventbus

import (
	"context"
	"testing"
)

type recordingEmitter struct {
	frames []Frame
	ids    []int64
}

func (r *recordingEmitter) Emit(requestID int64, frame Frame) {
	r.ids = append(r.ids, requestID)
	r.frames = append(r.frames, frame)
}

func TestSinkOrdersFramesBeforeDone(t *testing.T) {
	emitter := &recordingEmitter{}
	sink := New(context.Background(), 7, emitter)

	sink.Progress(map[string]any{"progress": 0.0})
	sink.Log("starting install", nil)
	sink.Progress(map[string]any{"progress": 1.0})

	if len(emitter.frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(emitter.frames))
	}
	for _, id := range emitter.ids {
		if id != 7 {
			t.Fatalf("all frames must carry request id 7, got %d", id)
		}
	}
	if emitter.frames[0].Kind != KindProgress || emitter.frames[1].Kind != KindLog {
		t.Fatalf("unexpected frame kinds: %+v", emitter.frames)
	}
}

func TestSinkDropsFramesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	emitter := &recordingEmitter{}
	sink := New(ctx, 1, emitter)

	cancel()
	sink.Progress(map[string]any{"progress": 0.5})

	if len(emitter.frames) != 0 {
		t.Fatalf("expected no frames emitted after cancellation, got %d", len(emitter.frames))
	}
	if !sink.Cancelled() {
		t.Fatalf("expected sink to report cancelled")
	}
}

func TestNoopSinkNeverPanics(t *testing.T) {
	sink := Noop(context.Background())
	sink.Progress(1)
	sink.Log("x", nil)
	sink.Status(nil)
	if sink.Cancelled() {
		t.Fatalf("fresh noop sink should not be cancelled")
	}
}
