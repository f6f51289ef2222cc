package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// CommandDescriptor is the wire shape of one entry in discover/list_commands.
type CommandDescriptor struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	ArgNames      []string `json:"arg_names,omitempty"`
	ReadOnly      bool     `json:"read_only"`
	StreamsEvents bool     `json:"streams_events"`
	Dangerous     bool     `json:"dangerous"`
	Blocked       bool     `json:"blocked"`
}

// RegisterReflectionCommands appends the agent_api category's reflection
// commands (discover, list_commands, get_schema, events_info) to r, closing
// over r itself so they always describe the finished registry.
// They are exempt from blocklist gating by registry.Policy.Allowed, but
// still honestly report which OTHER commands are blocked, since discovery
// must remain truthful even on a locked-down profile.
func RegisterReflectionCommands(r *Registry, policy func() Policy) {
	describe := func() []CommandDescriptor {
		p := policy()
		cmds := r.All()
		out := make([]CommandDescriptor, 0, len(cmds))
		for _, c := range cmds {
			out = append(out, CommandDescriptor{
				Name:          c.Name,
				Category:      c.Category,
				ArgNames:      c.ArgNames,
				ReadOnly:      c.ReadOnly,
				StreamsEvents: c.StreamsEvents,
				Dangerous:     c.Dangerous,
				Blocked:       !p.Allowed(c.Name),
			})
		}
		return out
	}

	r.Register(Command{
		Name:     "discover",
		Category: "agent_api",
		ReadOnly: true,
		Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
			return describe(), nil
		},
	})
	r.Register(Command{
		Name:     "list_commands",
		Category: "agent_api",
		ReadOnly: true,
		Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
			cmds := r.All()
			names := make([]string, 0, len(cmds))
			for _, c := range cmds {
				names = append(names, c.Name)
			}
			return names, nil
		},
	})
	r.Register(Command{
		Name:     "get_schema",
		Category: "agent_api",
		ArgNames: []string{"name"},
		ReadOnly: true,
		Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return describe(), nil
			}
			c, ok := r.Lookup(name)
			if !ok {
				return nil, notFound(name)
			}
			return CommandDescriptor{
				Name:          c.Name,
				Category:      c.Category,
				ArgNames:      c.ArgNames,
				ReadOnly:      c.ReadOnly,
				StreamsEvents: c.StreamsEvents,
				Dangerous:     c.Dangerous,
				Blocked:       !policy().Allowed(c.Name),
			}, nil
		},
	})
	r.Register(Command{
		Name:     "events_info",
		Category: "agent_api",
		ReadOnly: true,
		Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
			cmds := r.All()
			var streaming []string
			for _, c := range cmds {
				if c.StreamsEvents {
					streaming = append(streaming, c.Name)
				}
			}
			return map[string]any{
				"kinds":             []string{"progress", "log", "status"},
				"streaming_commands": streaming,
			}, nil
		},
	})
}
