// Package bootstrap loads configuration, the process logger and the database
// connection shared by every command.
package bootstrap

import (
	"fmt"
	"os"

	"github.com/orris-inc/offramp/internal/infrastructure/config"
	"github.com/orris-inc/offramp/internal/infrastructure/database"
	"github.com/orris-inc/offramp/internal/shared/logger"
)

// ResolveEnv lets the ENV variable override the --env flag.
func ResolveEnv(flagValue string) string {
	if envVar := os.Getenv("ENV"); envVar != "" {
		return envVar
	}
	return flagValue
}

// GinMode maps a deployment environment onto a gin mode.
func GinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}

// LoadOnly loads config for env and initializes the logger.
func LoadOnly(env string) (*config.Config, logger.Interface, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = GinMode(env)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.NewLogger(), nil
}

// Setup is LoadOnly plus the database connection. Callers must call
// database.Close.
func Setup(env string) (*config.Config, logger.Interface, error) {
	cfg, log, err := LoadOnly(env)
	if err != nil {
		return nil, nil, err
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, log, nil
}
