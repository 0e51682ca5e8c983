package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orris-inc/offramp/internal/infrastructure/database"
	"github.com/orris-inc/offramp/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/orris-inc/offramp/internal/interfaces/http"
	"github.com/orris-inc/offramp/internal/shared/constants"
)

// The worker runs only the settlement sweeps, for deployments that start the
// API with --no-scheduler.
func main() {
	env := constants.EnvDevelopment
	if len(os.Args) > 1 {
		env = os.Args[1]
	}
	env = bootstrap.ResolveEnv(env)

	cfg, log, err := bootstrap.Setup(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer database.Close()

	log.Infow("starting settlement worker", "environment", env)

	container, err := httpRouter.NewContainer(database.Get(), cfg, log)
	if err != nil {
		log.Fatalw("failed to build application", "error", err)
	}
	defer container.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catch up before the first tick.
	container.Scheduler().ExpireOnce(ctx)
	container.Scheduler().ReconcileOnce(ctx)
	container.Scheduler().Start(ctx)

	<-ctx.Done()
	log.Infow("settlement worker stopping")
}
