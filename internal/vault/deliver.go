package vault

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/fsatomic"
)

// Deliver performs the step C6 (the SyftBox Adapter) triggers on sync: it
// scans every known datasite's outbox under dataDir and copies each pending
// message into every recipient's inbox, then marks the sender's copy
// delivered. It is idempotent (property 7: re-delivering the same
// message id is a no-op) because it skips any message already present at
// the recipient's inbox path.
func Deliver(dataDir string) (int, error) {
	datasitesRoot := filepath.Join(dataDir, "datasites")
	owners, err := os.ReadDir(datasitesRoot)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, bverrors.Wrap(bverrors.KindIoError, "reading datasites root", err)
	}

	delivered := 0
	for _, ownerEntry := range owners {
		if !ownerEntry.IsDir() {
			continue
		}
		owner := ownerEntry.Name()
		outbox := filepath.Join(datasitesRoot, owner, "app_data", "biovault", "rpc", "message")
		msgs, err := scanMessages(outbox)
		if err != nil {
			return delivered, bverrors.Wrap(bverrors.KindIoError, "scanning outbox for delivery", err)
		}

		for _, m := range msgs {
			changed := false
			for _, to := range m.To {
				inboxDir := filepath.Join(datasitesRoot, to, "app_data", "biovault", "inbox", m.ThreadID)
				dest := filepath.Join(inboxDir, m.ID+".json")
				if _, err := os.Stat(dest); err == nil {
					continue // already delivered to this recipient
				}
				if err := fsatomic.EnsureDir(inboxDir); err != nil {
					return delivered, bverrors.Wrap(bverrors.KindIoError, "creating inbox directory", err)
				}
				data, err := json.MarshalIndent(m, "", "  ")
				if err != nil {
					return delivered, bverrors.Wrap(bverrors.KindInternal, "marshaling delivered message", err)
				}
				if err := fsatomic.WriteFile(dest, data, 0o600); err != nil {
					return delivered, bverrors.Wrap(bverrors.KindIoError, "writing inbox message", err)
				}
				changed = true
				delivered++
			}

			if changed && m.Status != StatusDelivered {
				m.Status = StatusDelivered
				data, err := json.MarshalIndent(m, "", "  ")
				if err != nil {
					return delivered, bverrors.Wrap(bverrors.KindInternal, "marshaling outbox status update", err)
				}
				src := filepath.Join(outbox, m.ID+".json")
				if err := fsatomic.WriteFile(src, data, 0o600); err != nil {
					return delivered, bverrors.Wrap(bverrors.KindIoError, "updating outbox status", err)
				}
			}
		}
	}
	return delivered, nil
}
