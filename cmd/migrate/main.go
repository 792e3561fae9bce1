package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"quiz-live-backend/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("dir", "", "migrations directory (default db/migrations/<DB_DRIVER>)")
	down := flag.Bool("down", false, "roll back every migration")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	if *dir == "" {
		*dir = "db/migrations/" + cfg.DBDriver
	}

	version, dirty, err := run(*dir, cfg.MigrateURL(), *down)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("database migrations applied (version %d, dirty %v)", version, dirty)
}

// run applies or rolls back the migrations in dir and reports the resulting
// schema version.
func run(dir, databaseURL string, down bool) (uint, bool, error) {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return 0, false, fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("database migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}
