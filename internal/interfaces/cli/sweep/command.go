// Package sweep runs the expiry and reconciliation sweeps once, for cron
// deployments and manual recovery.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/offramp/internal/infrastructure/database"
	"github.com/orris-inc/offramp/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/orris-inc/offramp/internal/interfaces/http"
	"github.com/orris-inc/offramp/internal/shared/constants"
)

var (
	env           string
	skipExpire    bool
	skipReconcile bool
	timeout       time.Duration
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale intents and reconcile in-flight settlements once",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.Flags().BoolVar(&skipExpire, "skip-expire", false, "Do not expire pending intents")
	cmd.Flags().BoolVar(&skipReconcile, "skip-reconcile", false, "Do not reconcile settlements")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Upper bound for the whole run")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap.Setup(bootstrap.ResolveEnv(env))
	if err != nil {
		return err
	}
	defer database.Close()

	container, err := httpRouter.NewContainer(database.Get(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer container.Shutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	sched := container.Scheduler()
	if !skipExpire {
		sched.ExpireOnce(ctx)
	}
	if !skipReconcile {
		sched.ReconcileOnce(ctx)
	}

	log.Infow("sweep finished")
	return nil
}
