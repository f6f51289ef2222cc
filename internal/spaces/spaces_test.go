package spaces

import (
	"testing"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

func thread(participants []string, unread int, lastAt time.Time) vault.Thread {
	return vault.Thread{
		ThreadID:      vault.ThreadID(participants),
		Participants:  participants,
		UnreadCount:   unread,
		LastMessageAt: lastAt,
	}
}

func TestDeriveGroupsBySameParticipantSignature(t *testing.T) {
	now := time.Now()
	threads := []vault.Thread{
		thread([]string{"a@x", "b@x"}, 1, now),
		thread([]string{"b@x", "a@x"}, 2, now.Add(time.Minute)),
	}

	out := Derive(threads)
	if len(out) != 1 {
		t.Fatalf("expected 1 space, got %d", len(out))
	}
	if out[0].MemberCount != 2 {
		t.Fatalf("expected member_count 2, got %d", out[0].MemberCount)
	}
	if out[0].UnreadCount != 3 {
		t.Fatalf("expected unread_count 3, got %d", out[0].UnreadCount)
	}
	if len(out[0].ThreadIDs) != 2 {
		t.Fatalf("expected 2 thread ids folded into the space, got %d", len(out[0].ThreadIDs))
	}
}

func TestDeriveOrdersByMostRecentActivity(t *testing.T) {
	now := time.Now()
	older := thread([]string{"a@x", "b@x"}, 0, now)
	newer := thread([]string{"c@x", "d@x"}, 0, now.Add(time.Hour))

	out := Derive([]vault.Thread{older, newer})
	if len(out) != 2 {
		t.Fatalf("expected 2 spaces, got %d", len(out))
	}
	if !out[0].LastActivityAt.Equal(newer.LastMessageAt) {
		t.Fatalf("expected most recent space first")
	}
}
