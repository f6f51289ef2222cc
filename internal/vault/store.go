// Package vault implements the Vault Message Store: CRUD for
// messages, threads, and typed event metadata on the local filesystem,
// under the tree the SyftBox Adapter (C6) synchronizes. Writes are always
// temp-file + rename (internal/fsatomic), and every empty directory gets a
// .syftkeep marker, using the same save-then-rename atomic-write idiom as
// the rest of this module's on-disk state.
package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/fsatomic"
)

// Store is bound to one owner's view of the shared datasite tree rooted at
// dataDir, plus a private, never-synced localDir for per-profile metadata
// (read/unread, local deletions) that must not leak into the synced tree.
type Store struct {
	dataDir  string
	localDir string
	self     string

	threadLocks sync.Map // thread_id -> *sync.Mutex
}

// SendRequest is the argument shape of send_message.
type SendRequest struct {
	To       []string
	Subject  string
	Body     string
	ReplyTo  string
	Metadata map[string]any
}

// NewStore returns a Store for self, rooted at dataDir (which contains
// datasites/) with local-only state under localDir.
func NewStore(dataDir, localDir, self string) *Store {
	return &Store{dataDir: dataDir, localDir: localDir, self: self}
}

func (s *Store) biovaultRoot(owner string) string {
	return filepath.Join(s.dataDir, "datasites", owner, "app_data", "biovault")
}

func (s *Store) outboxDir() string {
	return filepath.Join(s.biovaultRoot(s.self), "rpc", "message")
}

func (s *Store) inboxThreadDir(threadID string) string {
	return filepath.Join(s.biovaultRoot(s.self), "inbox", threadID)
}

func (s *Store) readStatePath() string {
	return filepath.Join(s.localDir, s.self, "vault_read_state.json")
}

func (s *Store) tombstonePath() string {
	return filepath.Join(s.localDir, s.self, "vault_tombstones.json")
}

func (s *Store) threadLock(threadID string) *sync.Mutex {
	lock, _ := s.threadLocks.LoadOrStore(threadID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Send builds a Message, computes its thread_id, and writes it to this
// owner's outgoing queue. Delivery to
// recipients' inboxes happens later, driven by Deliver (invoked by the
// SyftBox Adapter on sync), never here directly — C6 "never mutates message
// or session files itself; it only instructs the daemon to sync",
// and this keeps that boundary honest even for the initial write.
func (s *Store) Send(req SendRequest) (Message, error) {
	if len(req.To) == 0 {
		return Message{}, bverrors.MissingParam("to")
	}
	if req.Body == "" {
		return Message{}, bverrors.MissingParam("body")
	}

	msg := Message{
		ID:        uuid.NewString(),
		From:      s.self,
		To:        req.To,
		Subject:   req.Subject,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
		Metadata:  req.Metadata,
	}
	msg.ThreadID = ThreadID(msg.Participants())

	lock := s.threadLock(msg.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	if err := fsatomic.EnsureDir(s.outboxDir()); err != nil {
		return Message{}, bverrors.Wrap(bverrors.KindIoError, "creating outbox directory", err)
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return Message{}, bverrors.Wrap(bverrors.KindInternal, "marshaling message", err)
	}
	path := filepath.Join(s.outboxDir(), msg.ID+".json")
	if err := fsatomic.WriteFile(path, data, 0o600); err != nil {
		return Message{}, bverrors.Wrap(bverrors.KindIoError, "writing outbox message", err)
	}

	return msg, nil
}

// scanMessages reads every *.json message file directly under dir (not
// recursive past one level of thread subdirectories for inbox).
func scanMessages(dir string) ([]Message, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue // tolerate a file mid-write/mid-sync
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// allMessages returns every message visible to this owner: what they sent
// (outbox) plus what has been delivered to them (inbox across all thread
// subdirectories), deduplicated by message id and filtered against local
// tombstones.
func (s *Store) allMessages() ([]Message, error) {
	outbox, err := scanMessages(s.outboxDir())
	if err != nil {
		return nil, bverrors.Wrap(bverrors.KindIoError, "scanning outbox", err)
	}

	inboxRoot := filepath.Join(s.biovaultRoot(s.self), "inbox")
	threadDirs, err := os.ReadDir(inboxRoot)
	var inbox []Message
	if err == nil {
		for _, td := range threadDirs {
			if !td.IsDir() {
				continue
			}
			msgs, err := scanMessages(filepath.Join(inboxRoot, td.Name()))
			if err != nil {
				return nil, bverrors.Wrap(bverrors.KindIoError, "scanning inbox", err)
			}
			inbox = append(inbox, msgs...)
		}
	} else if !os.IsNotExist(err) {
		return nil, bverrors.Wrap(bverrors.KindIoError, "reading inbox", err)
	}

	tombstones, err := s.loadTombstones()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []Message
	for _, m := range append(outbox, inbox...) {
		if _, dead := tombstones[m.ID]; dead {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// ListThreads groups all visible messages by thread_id into Thread views.
// scope is currently unused beyond documenting intent ("all" vs a
// narrower future scope); its exact accepted values are otherwise
// unspecified.
func (s *Store) ListThreads(scope string) ([]Thread, error) {
	msgs, err := s.allMessages()
	if err != nil {
		return nil, err
	}

	byThread := make(map[string][]Message)
	for _, m := range msgs {
		byThread[m.ThreadID] = append(byThread[m.ThreadID], m)
	}

	tombstonedThreads, err := s.loadTombstonedThreads()
	if err != nil {
		return nil, err
	}

	readState, err := s.loadReadState()
	if err != nil {
		return nil, err
	}

	var threads []Thread
	for threadID, group := range byThread {
		if _, deleted := tombstonedThreads[threadID]; deleted {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return lessMessage(group[i], group[j]) })
		last := group[len(group)-1]

		unread := 0
		for _, m := range group {
			if m.From == s.self {
				continue
			}
			if _, isRead := readState[m.ID]; !isRead {
				unread++
			}
		}

		var subject string
		for _, m := range group {
			if m.Subject != "" {
				subject = m.Subject
				break
			}
		}

		threads = append(threads, Thread{
			ThreadID:           threadID,
			Subject:            subject,
			Participants:       uniqueParticipants(group),
			UnreadCount:        unread,
			LastMessageAt:      last.CreatedAt,
			LastMessagePreview: preview(last.Body),
			SessionID:          sessionIDFromGroup(group),
		})
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].LastMessageAt.After(threads[j].LastMessageAt)
	})
	return threads, nil
}

// ThreadMessages returns a single thread's messages ordered by created_at,
// ties broken by id.
func (s *Store) ThreadMessages(threadID string) ([]Message, error) {
	msgs, err := s.allMessages()
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, m := range msgs {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if out == nil {
		return nil, bverrors.New(bverrors.KindNotFound, fmt.Sprintf("thread not found: %s", threadID))
	}
	sort.Slice(out, func(i, j int) bool { return lessMessage(out[i], out[j]) })
	return out, nil
}

func lessMessage(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func uniqueParticipants(msgs []Message) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range msgs {
		for _, p := range m.Participants() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

func sessionIDFromGroup(msgs []Message) string {
	for _, m := range msgs {
		if v, ok := m.Metadata[MetaSessionInvite]; ok {
			if obj, ok := v.(map[string]any); ok {
				if id, ok := obj["session_id"].(string); ok {
					return id
				}
			}
		}
	}
	return ""
}

func preview(body string) string {
	const maxLen = 140
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "…"
}

// MarkThreadAsRead clears unread state for every message in threadID that
// was not sent by this owner.
func (s *Store) MarkThreadAsRead(threadID string) error {
	msgs, err := s.ThreadMessages(threadID)
	if err != nil {
		return err
	}
	state, err := s.loadReadState()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		state[m.ID] = true
	}
	return s.saveReadState(state)
}

// DeleteMessage removes a single message from this owner's local view only
// ("local-only metadata updates": no outgoing
// writes). It tombstones rather than deletes the underlying file so a later
// Deliver pass does not resurrect it as a "new" message.
func (s *Store) DeleteMessage(messageID string) error {
	tombstones, err := s.loadTombstones()
	if err != nil {
		return err
	}
	tombstones[messageID] = true
	return s.saveTombstones(tombstones)
}

// DeleteThread removes a thread from this owner's local view only. Remote
// inboxes are never touched.
func (s *Store) DeleteThread(threadID string) error {
	msgs, err := s.ThreadMessages(threadID)
	if err != nil {
		return err
	}
	tombstones, err := s.loadTombstones()
	if err != nil {
		return err
	}
	for _, m := range msgs {
		tombstones[m.ID] = true
	}
	return s.saveTombstones(tombstones)
}

func (s *Store) loadReadState() (map[string]bool, error) {
	return loadBoolMap(s.readStatePath())
}

func (s *Store) saveReadState(state map[string]bool) error {
	return saveBoolMap(s.readStatePath(), state)
}

func (s *Store) loadTombstones() (map[string]bool, error) {
	return loadBoolMap(s.tombstonePath())
}

func (s *Store) saveTombstones(state map[string]bool) error {
	return saveBoolMap(s.tombstonePath(), state)
}

// loadTombstonedThreads returns the set of thread ids ListThreads hides
// explicitly. It always returns an empty set: fully tombstoned threads are
// already absent because allMessages() filters out their messages.
func (s *Store) loadTombstonedThreads() (map[string]bool, error) {
	// A thread disappears from allMessages() once every message in it is
	// tombstoned, so ListThreads naturally omits it; this hook exists for
	// symmetry and future per-thread tombstone bookkeeping.
	return map[string]bool{}, nil
}

func loadBoolMap(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, bverrors.Wrap(bverrors.KindIoError, "reading local vault state", err)
	}
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, bverrors.Wrap(bverrors.KindInternal, "parsing local vault state", err)
	}
	if m == nil {
		m = map[string]bool{}
	}
	return m, nil
}

func saveBoolMap(path string, m map[string]bool) error {
	data, err := json.Marshal(m)
	if err != nil {
		return bverrors.Wrap(bverrors.KindInternal, "marshaling local vault state", err)
	}
	if err := fsatomic.WriteFile(path, data, 0o600); err != nil {
		return bverrors.Wrap(bverrors.KindIoError, "writing local vault state", err)
	}
	return nil
}
