package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
)

func auditEntry(req Request, start time.Time, success bool, errMsg, peerAddr string) audit.Entry {
	argsSize := 0
	if len(req.Args) > 0 {
		if b, err := json.Marshal(req.Args); err == nil {
			argsSize = len(b)
		}
	}
	return audit.Entry{
		Timestamp:  start.UTC(),
		RequestID:  fmt.Sprintf("%d", req.ID),
		Cmd:        req.Cmd,
		ArgsSize:   argsSize,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    success,
		Error:      errMsg,
		PeerAddr:   peerAddr,
	}
}
