package vault

import "testing"

func TestThreadIDIgnoresOrderAndCase(t *testing.T) {
	a := ThreadID([]string{"A@X.com", "b@x.com"})
	b := ThreadID([]string{"b@X.COM", "a@x.com"})
	if a != b {
		t.Fatalf("expected order/case-insensitive thread ids to match, got %q vs %q", a, b)
	}
}

func TestThreadIDDedupesParticipants(t *testing.T) {
	a := ThreadID([]string{"a@x", "b@x"})
	b := ThreadID([]string{"a@x", "b@x", "a@x"})
	if a != b {
		t.Fatalf("expected duplicate participant to be a no-op, got %q vs %q", a, b)
	}
}

func TestThreadIDDiffersForDifferentParticipants(t *testing.T) {
	a := ThreadID([]string{"a@x", "b@x"})
	c := ThreadID([]string{"a@x", "c@x"})
	if a == c {
		t.Fatalf("expected distinct participant sets to hash differently")
	}
}

func TestThreadIDStableAndFixedWidth(t *testing.T) {
	id := ThreadID([]string{"a@x", "b@x"})
	if len(id) != 64 {
		t.Fatalf("expected a 64-char hex sha256 digest, got length %d (%q)", len(id), id)
	}
	if id2 := ThreadID([]string{"a@x", "b@x"}); id != id2 {
		t.Fatalf("expected repeated calls to be stable")
	}
}
