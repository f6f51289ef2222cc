package syftbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestQueueWatcherTracksCreatedMessageFiles(t *testing.T) {
	dir := t.TempDir()
	owner := filepath.Join(dir, "datasites", "alice@example.com", "app_data", "biovault", "rpc", "message")
	if err := os.MkdirAll(owner, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w := NewQueueWatcher(dir)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	msgPath := filepath.Join(owner, "msg-1.json")
	if err := os.WriteFile(msgPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.PendingFiles()) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected watcher to observe created file within deadline")
}

func TestQueueWatcherIdleWithEmptyDataDir(t *testing.T) {
	w := NewQueueWatcher("")
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	w.Stop()
	if len(w.PendingFiles()) != 0 {
		t.Fatalf("expected no pending files for idle watcher")
	}
}
