// Command nucleus is the device-local orchestration core: it loads boot
// settings, recovers the configuration tree from its transaction log,
// resolves which distribution to launch (§6's symlink-flip decision
// table), resumes any deployment left mid-bootstrap by a prior crash, and
// then launches every component recipe and runs until asked to stop.
//
// Startup order mirrors the original dispatcher's: settings before
// logging (so logging itself can be configured), the configuration tree
// before the kernel (components read their configuration from it), and
// the launch-target resolution before anything else touches alts/, since
// a prior crash may have left the symlink layout mid-flip.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/activator"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/bootconfig"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/configtree"
	diregistry "github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/context"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/kernel"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/logging"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/platform"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/publishqueue"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/shellrunner"
	"github.com/aws-greengrass/aws-greengrass-nucleus-sub015/internal/tlog"
)

type flags struct {
	root                 string
	initConfig           string
	awsRegion            string
	provision            bool
	setupSystemService   bool
	start                bool
	componentDefaultUser string
}

func main() {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:          "nucleus",
		Short:        "Device-local orchestration core",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f.opts(cmd))
		},
	}

	rootCmd.Flags().StringVar(&f.root, "root", "", "root directory for config, work, and package state")
	rootCmd.Flags().StringVar(&f.initConfig, "init-config", "", "path to a declarative configuration seed, applied on first boot")
	rootCmd.Flags().StringVar(&f.awsRegion, "aws-region", "", "AWS region used by provisioning and cloud-backed components")
	rootCmd.Flags().BoolVar(&f.provision, "provision", false, "run first-time provisioning before starting components")
	rootCmd.Flags().BoolVar(&f.setupSystemService, "setup-system-service", false, "install this binary as a system service and exit")
	rootCmd.Flags().BoolVar(&f.start, "start", true, "start components after provisioning; false provisions only")
	rootCmd.Flags().StringVar(&f.componentDefaultUser, "component-default-user", "", "default user:group for components (stored in settings; component processes run as the nucleus process's user)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("nucleus: received shutdown signal")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Fatal().Err(err).Msg("nucleus: fatal startup error")
	}
}

// opts translates flags the user actually set into bootconfig.Options, so
// an unset flag never overrides a settings file or environment variable
// with its zero value.
func (f *flags) opts(cmd *cobra.Command) []bootconfig.Option {
	var opts []bootconfig.Option
	changed := cmd.Flags().Changed
	if changed("root") {
		opts = append(opts, bootconfig.WithRoot(f.root))
	}
	if changed("init-config") {
		opts = append(opts, bootconfig.WithInitConfig(f.initConfig))
	}
	if changed("aws-region") {
		opts = append(opts, bootconfig.WithAWSRegion(f.awsRegion))
	}
	if changed("provision") {
		opts = append(opts, bootconfig.WithProvision(f.provision))
	}
	if changed("setup-system-service") {
		opts = append(opts, bootconfig.WithSetupSystemService(f.setupSystemService))
	}
	if changed("start") {
		opts = append(opts, bootconfig.WithStart(f.start))
	}
	if changed("component-default-user") {
		opts = append(opts, bootconfig.WithComponentDefaultUser(f.componentDefaultUser))
	}
	return opts
}

func run(ctx context.Context, opts []bootconfig.Option) error {
	settings, err := bootconfig.Load("", opts...)
	if err != nil {
		return fmt.Errorf("nucleus: load settings: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if settings.LogStore == bootconfig.LogStoreConsole {
		logCfg.Format = "console"
	}
	logging.Init(logCfg)

	logging.Info().Str("root", settings.Root).Msg("nucleus: starting")

	if settings.SetupSystemService {
		logging.Info().Msg("nucleus: --setup-system-service is not implemented by this build; exiting")
		return nil
	}

	if err := prepareDirectories(settings); err != nil {
		return fmt.Errorf("nucleus: prepare directories: %w", err)
	}

	tree := configtree.New()
	if _, err := tlog.Recover(settings.ConfigTlogPath(), tree); err != nil {
		return fmt.Errorf("nucleus: recover configuration tree: %w", err)
	}
	if err := seedInitConfig(tree, settings); err != nil {
		return fmt.Errorf("nucleus: apply initial configuration: %w", err)
	}

	target, action, err := activator.ResolveLaunchTarget(settings.AltsDir())
	if err != nil {
		return fmt.Errorf("nucleus: resolve launch target: %w", err)
	}
	logging.Info().Str("target", target).Str("action", string(action)).Msg("nucleus: launch target resolved")

	diCtx := diregistry.New()
	defer func() {
		if err := diCtx.Close(); err != nil {
			logging.Warn().Err(err).Msg("nucleus: teardown reported errors")
		}
	}()

	metadata, err := diregistry.GetOrConstruct(diCtx, "", func() (*activator.MetadataStore, error) {
		return activator.OpenMetadataStore(filepath.Join(settings.Root, "deployments", "metadata.db"))
	})
	if err != nil {
		return fmt.Errorf("nucleus: open deployment metadata store: %w", err)
	}

	runner, err := diregistry.GetOrConstruct(diCtx, "", func() (shellrunner.Runner, error) {
		return shellrunner.New(), nil
	})
	if err != nil {
		return fmt.Errorf("nucleus: construct shell runner: %w", err)
	}

	queue, err := diregistry.GetOrConstruct(diCtx, "", func() (*publishqueue.Queue, error) {
		return publishqueue.New()
	})
	if err != nil {
		return fmt.Errorf("nucleus: construct publish queue: %w", err)
	}
	tree.Subscribe(nil, false, func(n configtree.Notification) {
		if err := queue.Push(n); err != nil {
			logging.Warn().Err(err).Msg("nucleus: dropping configuration notification, publish queue rejected it")
		}
	})

	registry := kernel.NewRegistry()
	kern := kernel.New(kernel.Config{
		Queue:    queue,
		Registry: registry,
		Runner:   runner,
		Rank:     platform.HostRank(),
		PoolSize: 0,
		Tree: kernel.TreeConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   10 * time.Second,
			ShutdownTimeout:  30 * time.Second,
		},
	})

	act := activator.New(settings, tree, kern, metadata)

	kernelErrCh := kern.Run(ctx)

	// No task list is threaded in here because this build has no
	// deployment-delivery channel yet to have supplied one when the
	// pending record was staged; a build that adds one must pass the same
	// BootstrapTasks the deployment specified at StageKernelUpdate time.
	if _, err := act.ResumeBootstrap(ctx, nil); err != nil {
		logging.Error().Err(err).Msg("nucleus: resuming a pending kernel-update deployment failed")
	}

	if !settings.Start {
		logging.Info().Msg("nucleus: --start=false, provisioning complete, exiting without launching components")
		return nil
	}

	for _, recipe := range loadRecipes(registry) {
		if err := kern.Launch(recipe); err != nil {
			logging.Error().Str("component", recipe.Name).Err(err).Msg("nucleus: failed to launch component")
		}
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("nucleus: shutdown requested")
	case err := <-kernelErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("nucleus: supervisor tree terminated unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer shutdownCancel()
	if err := kern.Shutdown(shutdownCtx, 30*time.Second); err != nil {
		logging.Warn().Err(err).Msg("nucleus: one or more components did not stop within their timeout")
	}

	logging.Info().Msg("nucleus: stopped")
	return nil
}

// prepareDirectories creates the directory skeleton a fresh root needs
// before the configuration tree or alts protocol can be touched. A
// previously-provisioned root already has these; MkdirAll is a no-op then.
func prepareDirectories(settings *bootconfig.Settings) error {
	dirs := []string{
		settings.ConfigDir(),
		settings.RecipesDir(),
		settings.AltsDir(),
		filepath.Join(settings.Root, "deployments"),
		filepath.Join(settings.Root, "work"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// seedInitConfig merges the declarative configuration named by
// --init-config into tree, but only on a tree that recovered no entries at
// all — an existing tlog always wins over the seed, since the seed
// describes first-boot state, not a standing override.
func seedInitConfig(tree *configtree.Tree, settings *bootconfig.Settings) error {
	if settings.InitConfig == "" {
		return nil
	}
	if len(tree.Snapshot()) > 0 {
		return nil
	}
	data, err := os.ReadFile(settings.InitConfig)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read init config %s: %w", settings.InitConfig, err)
	}
	var seed map[string]any
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse init config %s: %w", settings.InitConfig, err)
	}
	return tree.MergeMap(nil, time.Now().UnixMilli(), seed, nil)
}

// loadRecipes returns the component recipes to launch. This build has no
// recipe-discovery mechanism (no package store scan, no deployment
// document ingestion yet); a future deployment delivered through
// internal/activator is what populates the kernel with recipes beyond
// whatever a component registers for itself at startup via registry.
func loadRecipes(registry *kernel.Registry) []kernel.Recipe {
	var recipes []kernel.Recipe
	for _, name := range registry.Names() {
		recipes = append(recipes, kernel.Recipe{Name: name})
	}
	return recipes
}
