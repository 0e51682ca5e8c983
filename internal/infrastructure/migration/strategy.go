package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/orris-inc/offramp/internal/shared/logger"
)

//go:embed scripts
var scripts embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate executes the migration strategy
	Migrate(db *gorm.DB, models ...interface{}) error
	// GetName returns the strategy name
	GetName() string
}

// GooseStrategy applies the embedded versioned SQL scripts for one driver.
type GooseStrategy struct {
	driver string
	logger logger.Interface
}

func NewGooseStrategy(driver string) *GooseStrategy {
	return &GooseStrategy{
		driver: driver,
		logger: logger.NewLogger().With("component", "migration.goose"),
	}
}

func (s *GooseStrategy) dialect() (string, string, error) {
	switch s.driver {
	case "mysql", "":
		return "mysql", "scripts/mysql", nil
	case "postgres":
		return "postgres", "scripts/postgres", nil
	case "sqlite":
		return "sqlite3", "scripts/sqlite", nil
	default:
		return "", "", fmt.Errorf("no migrations for driver %q", s.driver)
	}
}

// withGoose runs fn with goose configured for this driver.
func (s *GooseStrategy) withGoose(db *gorm.DB, fn func(dir string, sqlDB *sql.DB) error) error {
	dialect, dir, err := s.dialect()
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(scripts)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return fn(dir, sqlDB)
}

func (s *GooseStrategy) Migrate(db *gorm.DB, _ ...interface{}) error {
	return s.withGoose(db, func(dir string, sqlDB *sql.DB) error {
		currentVersion, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			s.logger.Errorw("failed to get current version", "error", err)
			return fmt.Errorf("failed to get current version: %w", err)
		}

		s.logger.Infow("current migration status",
			"driver", s.driver,
			"version", currentVersion)

		if err := goose.Up(sqlDB, dir); err != nil {
			s.logger.Errorw("migration failed", "error", err)
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		finalVersion, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get final version: %w", err)
		}

		s.logger.Infow("migration completed successfully",
			"from_version", currentVersion,
			"to_version", finalVersion)
		return nil
	})
}

func (s *GooseStrategy) GetName() string {
	return "goose"
}

func (s *GooseStrategy) MigrateDown(db *gorm.DB, steps int) error {
	s.logger.Infow("starting down migration", "steps", steps)

	return s.withGoose(db, func(dir string, sqlDB *sql.DB) error {
		for i := 0; i < steps; i++ {
			if err := goose.Down(sqlDB, dir); err != nil {
				s.logger.Errorw("down migration failed", "error", err)
				return fmt.Errorf("failed to run down migration: %w", err)
			}
		}
		s.logger.Infow("down migration completed successfully")
		return nil
	})
}

func (s *GooseStrategy) GetVersion(db *gorm.DB) (int64, error) {
	var version int64
	err := s.withGoose(db, func(_ string, sqlDB *sql.DB) error {
		v, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

func (s *GooseStrategy) Status(db *gorm.DB) error {
	return s.withGoose(db, func(dir string, sqlDB *sql.DB) error {
		if err := goose.Status(sqlDB, dir); err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		return nil
	})
}

// Create writes an empty numbered SQL migration for this driver under root,
// the directory that holds scripts/.
func (s *GooseStrategy) Create(root, name string) error {
	_, dir, err := s.dialect()
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetSequential(true)
	defer goose.SetSequential(false)

	if err := goose.Create(nil, filepath.Join(root, dir), name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	return nil
}

// GormAutoMigrateStrategy lets gorm derive the schema from the models.
// Used for local development and tests only.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy() *GormAutoMigrateStrategy {
	return &GormAutoMigrateStrategy{
		logger: logger.NewLogger().With("component", "migration.automigrate"),
	}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) == 0 {
		models = AutoMigrateModels()
	}
	if err := db.AutoMigrate(models...); err != nil {
		s.logger.Errorw("auto migrate failed", "error", err)
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	s.logger.Infow("auto migrate completed", "models", len(models))
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}
