package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/config"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// ProfileRestarter is invoked after a successful profile switch so the
// bridge/sync adapter can be torn down and rebuilt against the new home
// directory; implemented by internal/supervisor.ProfileSupervisor.
type ProfileRestarter interface {
	RestartForProfile(home string) error
}

// IdentityDeps is the shared dependency seam for the settings and profiles
// categories.
type IdentityDeps struct {
	Settings  *config.Store
	Profiles  *config.ProfileStore
	Restarter ProfileRestarter
}

// BuildIdentityCommands returns the settings and profiles categories'
// commands.
func BuildIdentityCommands(deps IdentityDeps) []Command {
	return []Command{
		{
			Name:     "get_settings",
			Category: "settings",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Settings.Load()
			},
		},
		{
			Name:     "update_settings",
			Category: "settings",
			ArgNames: []string{"settings"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				current, err := deps.Settings.Load()
				if err != nil {
					return nil, err
				}
				patch, ok := args["settings"].(map[string]any)
				if !ok {
					return nil, bverrors.MissingParam("settings")
				}
				applySettingsPatch(&current, patch)
				if err := deps.Settings.Save(current); err != nil {
					return nil, err
				}
				return current, nil
			},
		},
		{
			Name:     "list_profiles",
			Category: "profiles",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Profiles.List()
			},
		},
		{
			Name:     "get_active_profile",
			Category: "profiles",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return deps.Profiles.Active()
			},
		},
		{
			Name:     "create_profile",
			Category: "profiles",
			ArgNames: []string{"email", "home"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				email, err := requireString(args, "email")
				if err != nil {
					return nil, err
				}
				home, err := requireString(args, "home")
				if err != nil {
					return nil, err
				}
				return deps.Profiles.Create(email, home)
			},
		},
		{
			Name:      "switch_profile",
			Category:  "profiles",
			ArgNames:  []string{"profile_id"},
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "profile_id")
				if err != nil {
					return nil, err
				}
				prof, err := deps.Profiles.Switch(id)
				if err != nil {
					return nil, err
				}
				if deps.Restarter != nil {
					sink.Status(map[string]any{"phase": "restarting"})
					if err := deps.Restarter.RestartForProfile(prof.HomePath); err != nil {
						return nil, bverrors.Wrap(bverrors.KindInternal, "restarting after profile switch", err)
					}
				}
				return prof, nil
			},
		},
		{
			Name:      "delete_profile",
			Category:  "profiles",
			ArgNames:  []string{"profile_id"},
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "profile_id")
				if err != nil {
					return nil, err
				}
				return nil, deps.Profiles.Delete(id)
			},
		},
	}
}

func applySettingsPatch(s *config.Settings, patch map[string]any) {
	if v, ok := patch["email"].(string); ok {
		s.Email = v
	}
	if v, ok := patch["biovault_path"].(string); ok {
		s.BiovaultPath = v
	}
	if v, ok := patch["syftbox_server_url"].(string); ok {
		s.SyftboxServerURL = v
	}
	if v, ok := patch["agent_bridge_enabled"].(bool); ok {
		s.AgentBridgeEnabled = v
	}
	if v, ok := patch["agent_bridge_token"].(string); ok {
		s.AgentBridgeToken = v
	}
	if v, ok := patch["autostart_enabled"].(bool); ok {
		s.AutostartEnabled = v
	}
	if v, ok := patch["agent_bridge_blocklist"].([]any); ok {
		list := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		s.AgentBridgeBlocklist = list
	}
}
