package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pysnip/internal/app"
	"pysnip/internal/domain"
	"pysnip/internal/infra/config"
)

type cliOptions struct {
	configPath string
	cfg        domain.Config
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{
		configPath: os.Getenv(config.EnvPrefix + "_CONFIG"),
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "pysnip",
		Short:         "Browse, document and run a tree of Python utility scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", opts.configPath, "path to config file (yaml, toml or json)")
	flags.String("root", domain.DefaultRoot, "catalog root directory")
	flags.String("listen", domain.DefaultServerListenAddress, "API listen address")
	flags.String("log-level", domain.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", domain.DefaultLogFormat, "log format (json or console)")
	flags.String("interpreter", domain.DefaultInterpreter, "interpreter used to run tools")
	flags.Int("timeout", domain.DefaultExecutionTimeoutSeconds, "execution timeout in seconds")
	flags.Bool("watch", true, "watch the root for changes")
	flags.Bool("cache", true, "use the catalog cache")

	root.AddCommand(
		newServeCmd(opts),
		newScanCmd(opts),
		newRunCmd(opts),
		newParamsCmd(opts),
		newDocsCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and builds the logger. Commands that need
// neither skip it through the skipConfig annotation.
func (o *cliOptions) load(cmd *cobra.Command) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}
	cfg, err := config.NewLoader(nil).WithFlags(cmd.Flags()).Load(cmd.Context(), o.configPath)
	if err != nil {
		return err
	}
	logger, err := app.BuildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

const skipConfig = "pysnip/skip-config"

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
