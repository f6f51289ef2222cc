package bverrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAsKindRecognizesWrappedError(t *testing.T) {
	base := New(KindNotFound, "thread not found")
	wrapped := fmt.Errorf("list_message_threads: %w", base)

	if got := AsKind(wrapped); got != KindNotFound {
		t.Fatalf("AsKind(wrapped) = %q, want %q", got, KindNotFound)
	}
}

func TestAsKindFallsBackToInternal(t *testing.T) {
	if got := AsKind(errors.New("boom")); got != KindInternal {
		t.Fatalf("AsKind(plain) = %q, want %q", got, KindInternal)
	}
}

func TestAsKindNilIsEmpty(t *testing.T) {
	if got := AsKind(nil); got != "" {
		t.Fatalf("AsKind(nil) = %q, want empty", got)
	}
}

func TestMissingParamMessage(t *testing.T) {
	err := MissingParam("session_id")
	if err.Kind != KindInvalidArgument {
		t.Fatalf("kind = %q, want InvalidArgument", err.Kind)
	}
	if err.Error() != "InvalidArgument: Missing session_id" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestParseParamWrapsCause(t *testing.T) {
	cause := errors.New("invalid uuid")
	err := ParseParam("to", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected ParseParam to wrap cause")
	}
}
