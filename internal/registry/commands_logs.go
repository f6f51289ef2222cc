package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/logring"
)

// LogsDeps is the logs category' dependency seam.
type LogsDeps struct {
	Ring *logring.RingBuffer
}

// BuildLogsCommands returns the logs category's commands: a read-only
// window onto the desktop process's own structured log stream, captured by
// logring.TeeHandler alongside whatever it writes to disk.
func BuildLogsCommands(deps LogsDeps) []Command {
	return []Command{
		{
			Name:     "get_recent_logs",
			Category: "logs",
			ArgNames: []string{"max_entries", "min_level", "since"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				max := 200
				if v, ok := args["max_entries"].(float64); ok && v > 0 {
					max = int(v)
				}
				minLevel := slog.LevelInfo
				if v, ok := args["min_level"].(string); ok {
					minLevel = parseLevel(v)
				}
				var since time.Time
				if v, ok := args["since"].(string); ok && v != "" {
					if t, err := time.Parse(time.RFC3339, v); err == nil {
						since = t
					}
				}
				return deps.Ring.Entries(max, minLevel, since), nil
			},
		},
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
