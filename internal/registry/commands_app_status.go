package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// AppStatusDeps is the app_status category's dependency seam.
type AppStatusDeps struct {
	Version string
}

// BuildAppStatusCommands returns the app_status category's commands.
func BuildAppStatusCommands(deps AppStatusDeps) []Command {
	return []Command{
		{
			Name:     "get_app_version",
			Category: "app_status",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return map[string]any{"version": deps.Version}, nil
			},
		},
	}
}
