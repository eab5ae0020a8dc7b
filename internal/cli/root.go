package cli

import (
	"log/slog"

	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/anonto42/nano-social/backend/pkg/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command. Running it bare starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nano-social",
		Short: "nano-social API server",
		Long: `nano-social serves the social API: profiles, follows, posts and polls,
stories, chat and notifications.

Configuration comes from the environment (a .env file is read if present)
and an optional config file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to a config file (env vars take precedence)")

	serve := NewServeCommand(opts)
	cmd.RunE = serve.RunE

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPurgeStoriesCommand(opts))

	return cmd
}

// bootstrap loads configuration and builds the process logger.
func bootstrap(opts *RootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}
