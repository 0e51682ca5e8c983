package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orris-inc/offramp/internal/infrastructure/config"
	"github.com/orris-inc/offramp/internal/infrastructure/database"
	"github.com/orris-inc/offramp/internal/infrastructure/migration"
	"github.com/orris-inc/offramp/internal/interfaces/cli/bootstrap"
	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

var (
	env   string
	name  string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect the versioned SQL migrations for the configured database driver.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new SQL migration for the configured driver",
		RunE:  runCreate,
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the migration (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func initEnv() (*config.Config, logger.Interface, *migration.GooseStrategy, error) {
	cfg, log, err := bootstrap.Setup(bootstrap.ResolveEnv(env))
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, migration.NewGooseStrategy(cfg.Database.Driver), nil
}

func runUp(cmd *cobra.Command, args []string) error {
	_, log, strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	log.Infow("running up migrations", "environment", env)

	if err := strategy.Migrate(database.Get()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Infow("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	_, log, strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	log.Infow("running down migrations", "environment", env, "steps", steps)

	if err := strategy.MigrateDown(database.Get(), steps); err != nil {
		return fmt.Errorf("down migration failed: %w", err)
	}

	log.Infow("down migration completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, strategy, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := strategy.GetVersion(database.Get())
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Printf("\nMigration Status:\n")
	fmt.Printf("  Environment:     %s\n", env)
	fmt.Printf("  Driver:          %s\n", cfg.Database.Driver)
	fmt.Printf("  Current Version: %d\n", version)

	if err := strategy.Status(database.Get()); err != nil {
		return fmt.Errorf("failed to get detailed status: %w", err)
	}
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap.LoadOnly(bootstrap.ResolveEnv(env))
	if err != nil {
		return err
	}

	root, err := filepath.Abs("./internal/infrastructure/migration")
	if err != nil {
		return fmt.Errorf("failed to resolve migration directory: %w", err)
	}

	if err := migration.NewGooseStrategy(cfg.Database.Driver).Create(root, name); err != nil {
		return err
	}

	log.Infow("migration created", "name", name, "driver", cfg.Database.Driver)
	return nil
}
