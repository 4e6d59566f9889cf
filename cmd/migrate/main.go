package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

var (
	openDBFunc  = db.NewDatabase
	migrateFunc = db.Migrate
	versionFunc = db.Version
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up, down or version")
	path := flag.String("path", "", "migrations directory (defaults to MIGRATIONS_PATH)")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if *path != "" {
		cfg.MigrationsPath = *path
	}

	if err := run(cfg, *mode, os.Stdout); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(cfg *config.Config, mode string, out io.Writer) error {
	database, err := openDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	switch mode {
	case "up", "down":
		if err := migrateFunc(database, cfg.MigrationsPath, db.Direction(mode)); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown mode: %s (use 'up', 'down' or 'version')", mode)
	}

	return printVersion(database, cfg.MigrationsPath, out)
}

func printVersion(database *sql.DB, path string, out io.Writer) error {
	v, dirty, err := versionFunc(database, path)
	if err != nil {
		return err
	}
	if v == 0 {
		fmt.Fprintln(out, "schema version: none")
		return nil
	}
	fmt.Fprintf(out, "schema version: %d (dirty: %t)\n", v, dirty)
	return nil
}
