package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/spf13/cobra"
)

// NewPurgeStoriesCommand creates the purge-stories command, meant to be run
// from an external scheduler.
func NewPurgeStoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-stories",
		Short: "Delete expired stories and their views",
		Long: `Physically remove every story whose expiry has passed, together with its
view records. Expired stories are already hidden from reads; this only
reclaims storage.

Example:
  nano-social purge-stories --config /etc/nano-social.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurgeStories(cmd, rootOpts)
		},
	}
}

func runPurgeStories(cmd *cobra.Command, opts *RootOptions) error {
	cfg, log, err := bootstrap(opts)
	if err != nil {
		return err
	}
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is required: in-memory stories belong to the server process")
	}
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}
	defer db.CloseDB()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stories := repositories.NewMongoStoryRepository(db.Mongo.Database(cfg.MongoDatabase))
	views := repositories.NewPostgresStoryViewRepository(db.Postgres)
	deleted, err := repositories.PurgeExpiredStories(ctx, stories, views, clock.System().Now())
	if err != nil {
		return err
	}
	log.Info("expired stories purged", "deleted", deleted)
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired stories\n", deleted)
	return nil
}
