// Command biovaultcore runs the BioVault Desktop Collaboration Core: the
// Agent Bridge, the SyftBox Sync Adapter, and the Vault/Session/Messaging
// stores behind them, as a single local process the desktop shell spawns
// and supervises.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/OpenMined/biovault-desktop/core/internal/audit"
	"github.com/OpenMined/biovault-desktop/core/internal/bridge"
	"github.com/OpenMined/biovault-desktop/core/internal/config"
	"github.com/OpenMined/biovault-desktop/core/internal/health"
	"github.com/OpenMined/biovault-desktop/core/internal/logging"
	"github.com/OpenMined/biovault-desktop/core/internal/logring"
	"github.com/OpenMined/biovault-desktop/core/internal/metrics"
	"github.com/OpenMined/biovault-desktop/core/internal/registry"
	"github.com/OpenMined/biovault-desktop/core/internal/session"
	"github.com/OpenMined/biovault-desktop/core/internal/supervisor"
	"github.com/OpenMined/biovault-desktop/core/internal/syftbox"
	"github.com/OpenMined/biovault-desktop/core/internal/vault"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "biovaultcore",
		Short: "Agent Bridge and SyftBox sync core for the BioVault desktop app",
	}

	var configPath string
	var verbose bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge, the sync adapter, and the stores behind them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCore(configPath, verbose)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	serveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("biovaultcore %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate config without starting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			fmt.Printf("Configuration is valid.\n")
			fmt.Printf("  Bridge listen: %s\n", cfg.Bridge.ListenAddress)
			fmt.Printf("  Health listen: %s\n", cfg.Health.ListenAddress)
			fmt.Printf("  Tailscale only: %v\n", cfg.Security.TailscaleOnly)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(serveCmd, versionCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCore(configPath string, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	ring := logring.NewRingBuffer(1000)
	baseHandler, lj := logging.SetupHandler(
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.File,
		cfg.Logging.MaxSizeMB,
		cfg.Logging.MaxBackups,
		cfg.Logging.MaxAgeDays,
		cfg.Logging.Compress,
	)
	slog.SetDefault(slog.New(logring.NewTeeHandler(baseHandler, ring)))
	if lj != nil {
		defer lj.Close()
	}

	slog.Info("starting biovaultcore",
		"version", Version,
		"bridge_listen", cfg.Bridge.ListenAddress,
		"health_listen", cfg.Health.ListenAddress,
	)

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	configRoot := os.Getenv("BIOVAULT_CONFIG")
	if configRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving config root: %w", err)
		}
		configRoot = filepath.Join(home, ".biovault")
	}
	profiles := config.NewProfileStore(configRoot)
	activeProfile, err := profiles.Active()
	if err != nil {
		return fmt.Errorf("loading active profile: %w", err)
	}

	m := metrics.New()

	build, err := buildRuntime(shutdownCtx, cfg, activeProfile.HomePath, activeProfile.Email, ring, m)
	if err != nil {
		return fmt.Errorf("wiring runtime for profile %s: %w", activeProfile.ID, err)
	}
	build.identityDeps.Profiles = profiles

	sup := supervisor.New(build.srv, build.adapter, build.auditLogger, refreshFunc(build))
	var profileSup *supervisor.ProfileSupervisor
	profileSup = supervisor.NewProfileSupervisor(sup, build.srv, build.adapter, func(ctx context.Context, home string) (*bridge.Server, *syftbox.Adapter, error) {
		active, err := profiles.Active()
		if err != nil {
			return nil, nil, err
		}
		next, err := buildRuntime(ctx, cfg, home, active.Email, ring, m)
		if err != nil {
			return nil, nil, err
		}
		next.identityDeps.Profiles = profiles
		next.identityDeps.Restarter = profileSup
		next.srv.Registry = buildRegistry(next, ring)
		build = next
		return next.srv, next.adapter, nil
	})
	build.identityDeps.Restarter = profileSup

	reg := buildRegistry(build, ring)
	build.srv.Registry = reg

	go sup.Run(shutdownCtx)

	bridgeListener, err := net.Listen("tcp", cfg.Bridge.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to bind bridge listener on %s: %w", cfg.Bridge.ListenAddress, err)
	}
	bridgeServer := &http.Server{
		Handler:           build.srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var healthServer *http.Server
	var healthListener net.Listener
	if cfg.Health.Enabled {
		healthHandler := health.NewHandler(build.srv, build.adapter, Version, cfg.Health.Detailed)
		healthHandler.SetMetrics(m)

		healthMux := http.NewServeMux()
		healthMux.Handle(cfg.Health.Endpoint, healthHandler)
		if cfg.Monitoring.MetricsEnabled {
			healthMux.Handle(cfg.Monitoring.MetricsEndpoint, promhttp.Handler())
		}

		healthListener, err = net.Listen("tcp", cfg.Health.ListenAddress)
		if err != nil {
			bridgeListener.Close()
			return fmt.Errorf("failed to bind health listener on %s: %w", cfg.Health.ListenAddress, err)
		}
		healthServer = &http.Server{
			Handler:           healthMux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
	}

	if healthServer != nil {
		go func() {
			slog.Info("health endpoint listening", "address", cfg.Health.ListenAddress)
			if err := healthServer.Serve(healthListener); err != nil && err != http.ErrServerClosed {
				slog.Error("health server error", "error", err)
			}
		}()
	}

	go func() {
		slog.Info("bridge listening", "address", cfg.Bridge.ListenAddress)
		if err := bridgeServer.Serve(bridgeListener); err != nil && err != http.ErrServerClosed {
			slog.Error("bridge server error", "error", err)
		}
	}()

	if err := build.adapter.Start(shutdownCtx); err != nil {
		slog.Error("syftbox adapter failed to start", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	slog.Info("received shutdown signal, draining connections",
		"signal", sig.String(),
		"drain_timeout", cfg.Bridge.DrainTimeout.String(),
	)

	sup.Stop()
	shutdownCancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Bridge.DrainTimeout+10*time.Second)
	defer drainCancel()
	supervisor.Shutdown(drainCtx, build.srv, build.adapter, build.auditLogger, cfg.Bridge.DrainTimeout)

	if healthServer != nil {
		_ = healthServer.Shutdown(drainCtx)
	}
	_ = bridgeServer.Shutdown(drainCtx)

	return nil
}

// runtime is every component buildRuntime wires for one profile's home
// directory. Holding it as a struct, rather than returning a tuple, keeps
// the profile-restart closure and the initial boot path sharing one
// constructor.
type runtime struct {
	srv          *bridge.Server
	adapter      *syftbox.Adapter
	auditLogger  *audit.Logger
	vaultStore   *vault.Store
	coordinator  *session.Coordinator
	identityDeps *registry.IdentityDeps
	settings     *config.Store
	dataDir      string
	installer    registry.DependencyInstaller
}

func buildRuntime(ctx context.Context, cfg *config.Config, home, self string, ring *logring.RingBuffer, m *metrics.Metrics) (*runtime, error) {
	if home == "" {
		return nil, fmt.Errorf("active profile has no home_path")
	}
	dataDir := filepath.Join(home, "data")
	localDir := filepath.Join(home, "local")

	auditLogger, err := audit.New(home)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	settingsStore := config.NewStore(home)
	settings, err := settingsStore.Load()
	if err != nil {
		auditLogger.Close()
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	vaultStore := vault.NewStore(dataDir, localDir, self)
	coordinator := session.NewCoordinator(home, self, session.StubJupyterLauncher{})
	installer := registry.StubDependencyInstaller{}

	adapter := syftbox.New(syftbox.Config{
		Backend:    "embedded",
		DataDir:    dataDir,
		Email:      self,
		ConfigPath: settings.BiovaultPath,
	})

	policyFn := func() registry.Policy {
		return registry.Policy{Enabled: settings.AgentBridgeEnabled, Blocklist: settings.BlocklistSet()}
	}

	srv := bridge.NewServer(cfg, nil, policyFn)
	srv.Metrics = m
	srv.Audit = auditLogger

	identityDeps := &registry.IdentityDeps{Settings: settingsStore}

	return &runtime{
		srv:          srv,
		adapter:      adapter,
		auditLogger:  auditLogger,
		vaultStore:   vaultStore,
		coordinator:  coordinator,
		identityDeps: identityDeps,
		settings:     settingsStore,
		dataDir:      dataDir,
		installer:    installer,
	}, nil
}

func buildRegistry(b *runtime, ring *logring.RingBuffer) *registry.Registry {
	var commands []registry.Command
	commands = append(commands, registry.BuildVaultCommands(registry.VaultDeps{Store: b.vaultStore, DataDir: b.dataDir})...)
	commands = append(commands, registry.BuildSessionCommands(registry.SessionDeps{Coordinator: b.coordinator})...)
	commands = append(commands, registry.BuildSpacesCommands(registry.SpacesDeps{Store: b.vaultStore})...)
	commands = append(commands, registry.BuildSyftboxCommands(registry.SyftboxDeps{Adapter: b.adapter})...)
	commands = append(commands, registry.BuildAuditCommands(registry.AuditDeps{Logger: b.auditLogger})...)
	commands = append(commands, registry.BuildIdentityCommands(*b.identityDeps)...)
	commands = append(commands, registry.BuildLogsCommands(registry.LogsDeps{Ring: ring})...)
	commands = append(commands, registry.BuildAppStatusCommands(registry.AppStatusDeps{Version: Version})...)
	commands = append(commands, registry.BuildDependenciesCommands(registry.DependenciesDeps{Installer: b.installer})...)
	commands = append(commands, registry.BuildResetCommands(registry.ResetDeps{Store: b.vaultStore, Settings: b.settings, Audit: b.auditLogger})...)

	reg := registry.New(commands)
	registry.RegisterReflectionCommands(reg, func() registry.Policy {
		return registry.Policy{Enabled: true}
	})
	return reg
}

// refreshFunc builds the supervisor's auto-refresh tick: a non-blocking
// sync trigger against the adapter, which delivers whatever messages are
// queued in the vault outbox.
func refreshFunc(b *runtime) supervisor.RefreshFunc {
	return func(ctx context.Context) {
		b.adapter.TriggerSync()
	}
}
