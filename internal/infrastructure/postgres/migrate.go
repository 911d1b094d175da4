package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/fastygo/questlog/assets"
	"github.com/fastygo/questlog/internal/config"
)

// RunMigrations applies the users schema when enabled in configuration. The
// embedded migrations are used unless MIGRATIONS_PATH points elsewhere.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, source, err := newMigrate(cfg, driver)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Info("database migrations applied", zap.String("source", source))
	return nil
}

func newMigrate(cfg *config.Config, driver database.Driver) (*migrate.Migrate, string, error) {
	if cfg.Migrations.Path != "" {
		sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(cfg.Migrations.Path))
		m, err := migrate.NewWithDatabaseInstance(sourceURL, cfg.Database.Name, driver)
		return m, sourceURL, err
	}
	source, err := iofs.New(assets.Migrations, "migrations")
	if err != nil {
		return nil, "", err
	}
	m, err := migrate.NewWithInstance("iofs", source, cfg.Database.Name, driver)
	return m, "embedded", err
}
