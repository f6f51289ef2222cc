package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
)

// SyftboxDeps is the syftbox category's dependency seam.
type SyftboxDeps struct {
	Adapter *syftbox.Adapter
}

// BuildSyftboxCommands returns the syftbox category's commands.
func BuildSyftboxCommands(deps SyftboxDeps) []Command {
	return []Command{
		{
			Name:     "start_syftbox_client",
			Category: "syftbox",
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return nil, deps.Adapter.Start(ctx)
			},
		},
		{
			Name:     "stop_syftbox_client",
			Category: "syftbox",
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return nil, deps.Adapter.Stop(ctx)
			},
		},
		{
			Name:     "get_syftbox_state",
			Category: "syftbox",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Adapter.GetState(), nil
			},
		},
		{
			Name:     "trigger_syftbox_sync",
			Category: "syftbox",
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				deps.Adapter.TriggerSync()
				return map[string]any{"triggered": true}, nil
			},
		},
		{
			Name:     "syftbox_queue_status",
			Category: "syftbox",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Adapter.QueueStatus(), nil
			},
		},
		{
			Name:     "get_syftbox_config_info",
			Category: "syftbox",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Adapter.ConfigInfo(), nil
			},
		},
	}
}
