// Package registry implements the Command Registry: a static
// table of commands the Agent Bridge dispatches by name, plus the policy
// gate (enabled + blocklist) and the reflection endpoints agents use to
// discover what is callable. One file per category keeps each concern's
// commands, argument parsing, and handlers together.
package registry

import (
	"context"
	"strings"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// Handler is the uniform signature every registered command implements.
type Handler func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error)

// Command is one entry in the registry.
type Command struct {
	Name          string
	Category      string
	ArgNames      []string
	ReadOnly      bool
	StreamsEvents bool
	Dangerous     bool
	Handler       Handler
}

// Registry is the full set of commands known to a running bridge.
type Registry struct {
	commands map[string]Command
	order    []string
}

// New builds a Registry from the given commands, indexed by name. Later
// entries with a duplicate name overwrite earlier ones, matching the "last
// registration wins" convention of a simple routing table.
func New(commands []Command) *Registry {
	r := &Registry{commands: make(map[string]Command, len(commands))}
	for _, c := range commands {
		if _, exists := r.commands[c.Name]; !exists {
			r.order = append(r.order, c.Name)
		}
		r.commands[c.Name] = c
	}
	return r
}

// Register adds a command after construction, used for reflection commands
// whose handlers need to close over the finished Registry.
func (r *Registry) Register(c Command) {
	if _, exists := r.commands[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.commands[c.Name] = c
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// All returns every registered command in registration order.
func (r *Registry) All() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// reflectionCommands are exempt from blocklist gating: an agent
// must always be able to discover what it can call, even on a locked-down
// profile.
var reflectionCommands = map[string]struct{}{
	"discover":       {},
	"list_commands":  {},
	"get_schema":     {},
	"events_info":    {},
}

// Policy gates command execution on whether the bridge is enabled at all and
// on a per-command blocklist (settings: agent_bridge_enabled,
// agent_bridge_blocklist).
type Policy struct {
	Enabled   bool
	Blocklist map[string]struct{}
}

// Allowed reports whether name may be dispatched under this policy.
func (p Policy) Allowed(name string) bool {
	if _, reflective := reflectionCommands[name]; reflective {
		return true
	}
	if !p.Enabled {
		return false
	}
	if _, blocked := p.Blocklist[name]; blocked {
		return false
	}
	return true
}

// NormalizeArgs rewrites args' keys to match the command's canonical
// ArgNames, accepting either camelCase or snake_case from the caller.
// Unrecognized keys pass through unchanged so forward-compatible extra
// fields are not silently dropped.
func NormalizeArgs(cmd Command, args map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	canonical := make(map[string]string, len(cmd.ArgNames))
	for _, name := range cmd.ArgNames {
		canonical[toCamel(name)] = name
		canonical[name] = name
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		if canon, ok := canonical[k]; ok {
			out[canon] = v
			continue
		}
		out[k] = v
	}
	return out
}

func toCamel(snake string) string {
	parts := strings.Split(snake, "_")
	if len(parts) == 1 {
		return snake
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
