package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
	"github.com/OpenMined/biovault-desktop/core/internal/session"
)

// SessionDeps is the shared dependency seam for the sessions, files,
// jupyter, and datasets categories.
type SessionDeps struct {
	Coordinator *session.Coordinator
}

// BuildSessionCommands returns the session-lifecycle, file-attachment,
// Jupyter-control, and dataset-attachment commands.
func BuildSessionCommands(deps SessionDeps) []Command {
	c := deps.Coordinator
	return []Command{
		{
			Name:     "create_session",
			Category: "sessions",
			ArgNames: []string{"title", "participants"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				participants, err := stringSlice(args, "participants")
				if err != nil {
					return nil, err
				}
				title, _ := args["title"].(string)
				return c.CreateSession(session.CreateRequest{Title: title, Participants: participants})
			},
		},
		{
			Name:     "accept_session_invitation",
			Category: "sessions",
			ArgNames: []string{"session_id"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				return c.AcceptSessionInvitation(id)
			},
		},
		{
			Name:     "reject_session_invitation",
			Category: "sessions",
			ArgNames: []string{"session_id"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				return c.RejectSessionInvitation(id)
			},
		},
		{
			Name:     "close_session",
			Category: "sessions",
			ArgNames: []string{"session_id"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				return c.CloseSession(id)
			},
		},
		{
			Name:     "list_sessions",
			Category: "sessions",
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				return c.ListSessions()
			},
		},
		{
			Name:     "get_session",
			Category: "sessions",
			ArgNames: []string{"session_id"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				return c.GetSession(id)
			},
		},
		{
			Name:     "add_files_to_session",
			Category: "files",
			ArgNames: []string{"session_id", "paths"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				paths, err := stringSlice(args, "paths")
				if err != nil {
					return nil, err
				}
				return c.AddFilesToSession(id, paths)
			},
		},
		{
			Name:     "open_session_folder",
			Category: "files",
			ArgNames: []string{"session_id"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				path, err := c.OpenSessionFolder(id)
				return map[string]any{"path": path}, err
			},
		},
		{
			Name:          "launch_session_jupyter",
			Category:      "jupyter",
			ArgNames:      []string{"session_id"},
			StreamsEvents: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				sink.Status(map[string]any{"phase": "launching"})
				handle, err := c.LaunchJupyter(id)
				return map[string]any{"handle": handle}, err
			},
		},
		{
			Name:     "stop_session_jupyter",
			Category: "jupyter",
			ArgNames: []string{"handle"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				handle, err := requireString(args, "handle")
				if err != nil {
					return nil, err
				}
				return nil, c.StopJupyter(handle)
			},
		},
		{
			Name:          "reset_session_jupyter",
			Category:      "jupyter",
			ArgNames:      []string{"session_id", "handle"},
			StreamsEvents: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				handle, _ := args["handle"].(string)
				sink.Status(map[string]any{"phase": "resetting"})
				newHandle, err := c.ResetJupyter(id, handle)
				return map[string]any{"handle": newHandle}, err
			},
		},
		{
			Name:     "list_session_datasets",
			Category: "datasets",
			ArgNames: []string{"session_id"},
			ReadOnly: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				return c.ListSessionDatasets(id)
			},
		},
		{
			Name:     "add_dataset_to_session",
			Category: "datasets",
			ArgNames: []string{"session_id", "dataset_url", "role"},
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				url, err := requireString(args, "dataset_url")
				if err != nil {
					return nil, err
				}
				role, _ := args["role"].(string)
				return c.AddDatasetToSession(id, url, role)
			},
		},
		{
			Name:      "remove_dataset_from_session",
			Category:  "datasets",
			ArgNames:  []string{"session_id", "dataset_id"},
			Dangerous: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				id, err := requireString(args, "session_id")
				if err != nil {
					return nil, err
				}
				datasetID, err := requireString(args, "dataset_id")
				if err != nil {
					return nil, err
				}
				return c.RemoveDatasetFromSession(id, datasetID)
			},
		},
	}
}
