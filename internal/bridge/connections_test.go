package bridge

import "testing"

func TestConnTrackerAdmitsUpToLimitsThenRejects(t *testing.T) {
	ct := newConnTracker()
	if reason := ct.TryAdmit("1.2.3.4", 2, 2); reason != "" {
		t.Fatalf("first admit rejected: %s", reason)
	}
	if reason := ct.TryAdmit("1.2.3.4", 2, 2); reason != "" {
		t.Fatalf("second admit rejected: %s", reason)
	}
	if reason := ct.TryAdmit("1.2.3.4", 2, 2); reason == "" {
		t.Fatalf("expected per-client rejection")
	}
}

func TestConnTrackerReleaseFreesSlot(t *testing.T) {
	ct := newConnTracker()
	ct.TryAdmit("1.2.3.4", 1, 1)
	if ct.Count() != 1 {
		t.Fatalf("count = %d, want 1", ct.Count())
	}
	ct.Release("1.2.3.4")
	if ct.Count() != 0 {
		t.Fatalf("count after release = %d, want 0", ct.Count())
	}
	if reason := ct.TryAdmit("1.2.3.4", 1, 1); reason != "" {
		t.Fatalf("re-admit after release rejected: %s", reason)
	}
}

func TestConnTrackerEnforcesGlobalMax(t *testing.T) {
	ct := newConnTracker()
	ct.TryAdmit("a", 1, 10)
	if reason := ct.TryAdmit("b", 1, 10); reason != "max_connections" {
		t.Fatalf("reason = %q, want max_connections", reason)
	}
}
