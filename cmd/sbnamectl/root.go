package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"sbname/internal/app"
	"sbname/internal/platform/config"
	"sbname/internal/platform/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	cacheDriver string
	logLevel    string
	timeout     time.Duration
	jsonOutput  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "sbnamectl",
		Short: "Resolve product names and inspect the lookup cache",
		Long: `sbnamectl resolves product codes to display names through the lookup
cache and the catalog search, and lets operators inspect the cache.

Configuration is read from --config (or SBNAME_CONFIG) and SBNAME_*
environment variables, the same way the server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (default: $SBNAME_CONFIG)")
	root.PersistentFlags().StringVar(&flags.cacheDriver, "cache-driver", "", "Override the configured cache driver")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level for stderr output")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Overall operation timeout")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Print JSON instead of text")

	root.AddCommand(newResolveCmd(flags))
	root.AddCommand(newCacheCmd(flags))
	return root
}

func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if f.cacheDriver != "" {
		cfg.Cache.Driver = f.cacheDriver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withApp builds the application for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), flags.logLevel)
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
