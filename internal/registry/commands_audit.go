package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// AuditDeps is the logs category's dependency seam.
type AuditDeps struct {
	Logger *audit.Logger
}

// BuildAuditCommands returns the logs category's commands.
func BuildAuditCommands(deps AuditDeps) []Command {
	return []Command{
		{
			Name:     "get_audit_log",
			Category: "logs",
			ArgNames: []string{"max_entries"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				max := 0
				if v, ok := args["max_entries"].(float64); ok {
					max = int(v)
				}
				return deps.Logger.Tail(max)
			},
		},
		{
			Name:      "clear_audit_log",
			Category:  "logs",
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return nil, deps.Logger.Clear()
			},
		},
	}
}
