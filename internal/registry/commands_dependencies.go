package registry

import (
	"context"

	"github.com/OpenMined/biovault-desktop/core/internal/bverrors"
	"github.com/OpenMined/biovault-desktop/core/internal/eventbus"
)

// DependencyInstaller is the external collaborator that actually installs a
// named OS-level dependency (package managers, Docker, Nextflow; out of
// scope for this core). Production wiring lives in the desktop shell; this
// package only defines the seam and a stub for tests.
type DependencyInstaller interface {
	Install(ctx context.Context, name string, sink eventbus.Sink) error
}

// StubDependencyInstaller is a DependencyInstaller that never succeeds, used
// when no real installer has been wired (e.g. running the core standalone
// via cmd/biovaultcore).
type StubDependencyInstaller struct{}

func (StubDependencyInstaller) Install(ctx context.Context, name string, sink eventbus.Sink) error {
	return bverrors.New(bverrors.KindDaemonUnavailable, "no dependency installer configured")
}

// DependenciesDeps is the dependencies category's dependency seam.
type DependenciesDeps struct {
	Installer DependencyInstaller
}

// BuildDependenciesCommands returns the dependencies category's commands.
func BuildDependenciesCommands(deps DependenciesDeps) []Command {
	installer := deps.Installer
	if installer == nil {
		installer = StubDependencyInstaller{}
	}
	return []Command{
		{
			Name:          "install_dependency",
			Category:      "dependencies",
			ArgNames:      []string{"name"},
			StreamsEvents: true,
			Handler: func(ctx context.Context, args map[string]any, sink eventbus.Sink) (any, error) {
				name, err := requireString(args, "name")
				if err != nil {
					return nil, err
				}
				sink.Progress(map[string]any{"progress": 0.0, "message": "starting install of " + name})
				if err := installer.Install(ctx, name, sink); err != nil {
					return nil, err
				}
				sink.Progress(map[string]any{"progress": 1.0})
				return map[string]any{"installed": true}, nil
			},
		},
	}
}
