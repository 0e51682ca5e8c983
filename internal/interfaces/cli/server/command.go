package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/orris-inc/offramp/internal/infrastructure/database"
	"github.com/orris-inc/offramp/internal/infrastructure/migration"
	"github.com/orris-inc/offramp/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/orris-inc/offramp/internal/interfaces/http"
	"github.com/orris-inc/offramp/internal/shared/constants"
	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/version"
)

var (
	env         string
	autoMigrate bool
	noScheduler bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the offramp HTTP server: intent API, provider webhooks, admin endpoints and the settlement sweeps.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Do not run expiry and reconciliation sweeps in this process")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	env = bootstrap.ResolveEnv(env)

	cfg, log, err := bootstrap.Setup(env)
	if err != nil {
		return err
	}
	defer database.Close()

	log.Infow("starting server",
		"environment", env,
		"version", version.Current,
		"commit", version.Commit,
		"auto_migrate", autoMigrate || cfg.Server.AutoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if autoMigrate || cfg.Server.AutoMigrate {
		if env == constants.EnvProduction {
			log.Warnw("auto-migration is enabled in production")
		}
		manager := migration.NewManager(env, cfg.Database.Driver)
		if err := manager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	} else {
		checkMigrationVersion(cfg.Database.Driver, log)
	}

	container, err := httpRouter.NewContainer(database.Get(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer container.Shutdown()

	router := httpRouter.NewRouter(container)
	router.SetupRoutes()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if noScheduler {
		log.Infow("settlement sweeps disabled in this process")
	} else {
		container.Scheduler().Start(ctx)
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server listening",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}

func checkMigrationVersion(driver string, log logger.Interface) {
	current, err := migration.NewGooseStrategy(driver).GetVersion(database.Get())
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return
	}
	log.Infow("current migration version", "version", current)
}
