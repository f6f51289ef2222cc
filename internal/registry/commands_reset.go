package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/config"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// ResetDeps is the reset category's dependency seam.
type ResetDeps struct {
	Store    *vault.Store
	Settings *config.Store
	Audit    *audit.Logger
}

// BuildResetCommands returns the reset category's commands. Every command
// in this category is Dangerous: it discards local state irreversibly.
func BuildResetCommands(deps ResetDeps) []Command {
	return []Command{
		{
			Name:      "reset_everything",
			Category:  "reset",
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				threads, err := deps.Store.ListThreads("")
				if err != nil {
					return nil, err
				}
				for i, t := range threads {
					if err := deps.Store.DeleteThread(t.ThreadID); err != nil {
						return nil, err
					}
					sink.Progress(map[string]any{"progress": float64(i+1) / float64(len(threads)+1)})
				}
				if err := deps.Settings.Save(config.DefaultSettings()); err != nil {
					return nil, err
				}
				if err := deps.Audit.Clear(); err != nil {
					return nil, err
				}
				sink.Progress(map[string]any{"progress": 1.0})
				return map[string]any{"reset": true}, nil
			},
		},
	}
}
