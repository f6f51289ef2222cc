package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// VaultDeps is the messaging category's dependency seam.
type VaultDeps struct {
	Store   *vault.Store
	DataDir string
}

// BuildVaultCommands returns the messaging category's commands.
func BuildVaultCommands(deps VaultDeps) []Command {
	return []Command{
		{
			Name:     "send_message",
			Category: "messaging",
			ArgNames: []string{"to", "subject", "body", "reply_to", "metadata"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				to, err := stringSlice(args, "to")
				if err != nil {
					return nil, err
				}
				body, _ := args["body"].(string)
				subject, _ := args["subject"].(string)
				metadata, _ := args["metadata"].(map[string]any)
				return deps.Store.Send(vault.SendRequest{To: to, Subject: subject, Body: body, Metadata: metadata})
			},
		},
		{
			Name:     "list_message_threads",
			Category: "messaging",
			ArgNames: []string{"scope"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				scope, _ := args["scope"].(string)
				return deps.Store.ListThreads(scope)
			},
		},
		{
			Name:     "get_thread_messages",
			Category: "messaging",
			ArgNames: []string{"thread_id"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				threadID, err := requireString(args, "thread_id")
				if err != nil {
					return nil, err
				}
				return deps.Store.ThreadMessages(threadID)
			},
		},
		{
			Name:     "mark_thread_as_read",
			Category: "messaging",
			ArgNames: []string{"thread_id"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				threadID, err := requireString(args, "thread_id")
				if err != nil {
					return nil, err
				}
				return nil, deps.Store.MarkThreadAsRead(threadID)
			},
		},
		{
			Name:      "delete_message",
			Category:  "messaging",
			ArgNames:  []string{"message_id"},
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "message_id")
				if err != nil {
					return nil, err
				}
				return nil, deps.Store.DeleteMessage(id)
			},
		},
		{
			Name:      "delete_thread",
			Category:  "messaging",
			ArgNames:  []string{"thread_id"},
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				threadID, err := requireString(args, "thread_id")
				if err != nil {
					return nil, err
				}
				return nil, deps.Store.DeleteThread(threadID)
			},
		},
		{
			Name:          "sync_messages_with_failures",
			Category:      "messaging",
			StreamsEvents: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				sink.Progress(map[string]any{"phase": "scanning"})
				delivered, err := vault.Deliver(deps.DataDir)
				newFailed := 0
				if err != nil {
					newFailed = 1
				}
				sink.Status(map[string]any{"delivered": delivered})
				return map[string]any{"new_messages": delivered, "synced": delivered, "new_failed": newFailed}, err
			},
		},
		{
			Name:          "refresh_messages_batched",
			Category:      "messaging",
			ArgNames:      []string{"scope"},
			StreamsEvents: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				scope, _ := args["scope"].(string)
				sink.Progress(map[string]any{"phase": "syncing"})
				delivered, err := vault.Deliver(deps.DataDir)
				if err != nil {
					return nil, err
				}
				threads, err := deps.Store.ListThreads(scope)
				if err != nil {
					return nil, err
				}
				return map[string]any{"threads": threads, "new_messages": delivered}, nil
			},
		},
	}
}

func notFound(name string) error {
	return bverrors.New(bverrors.KindNotFound, "no such command: "+name)
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", bverrors.MissingParam(key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", bverrors.ParseParam(key, nil)
	}
	return s, nil
}

func stringSlice(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, bverrors.MissingParam(key)
	}
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}, nil
		}
		return nil, bverrors.ParseParam(key, nil)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, bverrors.ParseParam(key, nil)
		}
		out = append(out, s)
	}
	return out, nil
}
