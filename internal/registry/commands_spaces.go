package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/spaces"
	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// SpacesDeps is the participants category's dependency seam.
type SpacesDeps struct {
	Store *vault.Store
}

// BuildSpacesCommands returns the participants category's commands.
func BuildSpacesCommands(deps SpacesDeps) []Command {
	return []Command{
		{
			Name:     "list_spaces",
			Category: "participants",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				threads, err := deps.Store.ListThreads("all")
				if err != nil {
					return nil, err
				}
				return spaces.Derive(threads), nil
			},
		},
	}
}
