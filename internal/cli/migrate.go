package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables and indexes",
		Long: `Run GORM auto-migrations for the PostgreSQL models and, when MONGO_URI
is set, create the MongoDB indexes for posts and stories.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, rootOpts)
		},
	}
}

func runMigrate(cmd *cobra.Command, opts *RootOptions) error {
	cfg, log, err := bootstrap(opts)
	if err != nil {
		return err
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

	if err := migrate(ctx, cfg, db, log); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations complete")
	return nil
}

// migrate brings the Postgres schema and the Mongo indexes up to date.
func migrate(ctx context.Context, cfg *config.Config, db *config.DB, log *slog.Logger) error {
	if err := db.Postgres.WithContext(ctx).AutoMigrate(models.PostgresModels()...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed", "models", len(models.PostgresModels()))

	if db.Mongo == nil {
		return nil
	}
	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	if err := repositories.NewMongoPostRepository(mongoDB).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("post indexes: %w", err)
	}
	if err := repositories.NewMongoStoryRepository(mongoDB).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("story indexes: %w", err)
	}
	log.Info("MongoDB indexes ensured", "database", cfg.MongoDatabase)
	return nil
}
