// Package spaces derives Spaces from Vault threads: a pure, unpersisted view
// that groups threads by participant signature, the same grouping key
// vault.ThreadID hashes. No storage of its own — a Space exists only as the
// result of Derive.
package spaces

import (
	"sort"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// Space is a group of threads sharing the same participant set.
type Space struct {
	Signature      string    `json:"signature"`
	Participants   []string  `json:"participants"`
	ThreadIDs      []string  `json:"thread_ids"`
	MemberCount    int       `json:"member_count"`
	UnreadCount    int       `json:"unread_count"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Derive groups threads by participant signature into Spaces, ordered by
// most recent activity first.
func Derive(threads []vault.Thread) []Space {
	type group struct {
		participants []string
		threadIDs    []string
		unread       int
		lastActivity time.Time
	}

	bySig := make(map[string]*group)
	var order []string

	for _, th := range threads {
		sig := vault.ThreadID(th.Participants)
		g, ok := bySig[sig]
		if !ok {
			g = &group{participants: th.Participants}
			bySig[sig] = g
			order = append(order, sig)
		}
		g.threadIDs = append(g.threadIDs, th.ThreadID)
		g.unread += th.UnreadCount
		if th.LastMessageAt.After(g.lastActivity) {
			g.lastActivity = th.LastMessageAt
		}
	}

	out := make([]Space, 0, len(order))
	for _, sig := range order {
		g := bySig[sig]
		out = append(out, Space{
			Signature:      sig,
			Participants:   g.participants,
			ThreadIDs:      g.threadIDs,
			MemberCount:    len(g.participants),
			UnreadCount:    g.unread,
			LastActivityAt: g.lastActivity,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out
}
