package syftbox

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// QueueWatcher watches every known datasite's rpc/message and inbox
// directories with fsnotify, maintaining a live view of pending files
// without polling, satisfying syftbox_queue_status.
type QueueWatcher struct {
	dataDir string

	mu      sync.Mutex
	pending map[string]struct{}
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewQueueWatcher builds a watcher rooted at dataDir. Start must be called
// to begin watching; a zero-value dataDir leaves it permanently idle.
func NewQueueWatcher(dataDir string) *QueueWatcher {
	return &QueueWatcher{dataDir: dataDir, pending: make(map[string]struct{})}
}

// Start begins watching every datasite's rpc/message and inbox directories.
// It is safe to call multiple times; subsequent calls are no-ops while
// already running.
func (q *QueueWatcher) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.watcher != nil || q.dataDir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range q.watchDirs() {
		_ = os.MkdirAll(dir, 0o755)
		if err := w.Add(dir); err != nil {
			slog.Debug("syftbox: failed to watch directory", "dir", dir, "error", err)
		}
	}
	q.watcher = w
	q.done = make(chan struct{})
	go q.run(w, q.done)
	return nil
}

// Stop releases the fsnotify watcher. Safe to call when not started.
func (q *QueueWatcher) Stop() {
	q.mu.Lock()
	w := q.watcher
	done := q.done
	q.watcher = nil
	q.done = nil
	q.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
	if done != nil {
		<-done
	}
}

// PendingFiles returns the current set of known-pending message files.
func (q *QueueWatcher) PendingFiles() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.pending))
	for f := range q.pending {
		out = append(out, f)
	}
	return out
}

func (q *QueueWatcher) watchDirs() []string {
	root := filepath.Join(q.dataDir, "datasites")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		base := filepath.Join(root, e.Name(), "app_data", "biovault")
		dirs = append(dirs, filepath.Join(base, "rpc", "message"), filepath.Join(base, "inbox"))
	}
	return dirs
}

func (q *QueueWatcher) run(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			q.mu.Lock()
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				q.pending[event.Name] = struct{}{}
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(q.pending, event.Name)
			}
			q.mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Debug("syftbox: watcher error", "error", err)
		}
	}
}
