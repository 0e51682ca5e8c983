package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/offramp/internal/interfaces/cli/migrate"
	"github.com/orris-inc/offramp/internal/interfaces/cli/server"
	"github.com/orris-inc/offramp/internal/interfaces/cli/sweep"
	"github.com/orris-inc/offramp/internal/shared/version"
)

//go:generate swag init --parseInternal -g cmd/offramp/main.go -d ../.. -o ../../docs

// @title Offramp API
// @version 1.0
// @description Sell intents, provider webhooks and operator settlement endpoints.
// @BasePath /api/v1
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	rootCmd := &cobra.Command{
		Use:     "offramp",
		Short:   "Offramp - crypto deposit settlement service",
		Long:    `Offramp matches on-chain deposits to sell intents and settles them through swap and fiat payout providers.`,
		Version: version.Current,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		sweep.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
