package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rbroggi/usermgmt/internal/config"
	log "github.com/sirupsen/logrus"
)

var (
	down    = flag.Bool("down", false, "run migration down")
	envFile = flag.String("env-file", ".env", "optional dotenv file loaded before the environment")
)

func run() error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	migrationsDir := "file://" + filepath.ToSlash(dir)
	log.WithField("dir", migrationsDir).Info("using migrations")

	m, err := migrate.NewWithDatabaseInstance(migrationsDir, "postgres", driver)
	if err != nil {
		return err
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("database already up to date")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.WithField("version", version).WithField("dirty", dirty).WithField("down", *down).Info("migration applied")
	return nil
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Error("migration failed")
		os.Exit(1)
	}
}
