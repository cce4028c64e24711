// migrate applies the embedded schema: go run ./cmd/migrate -direction up|down|version.
package main

import (
	"flag"
	"fmt"
	"os"

	"playlog/backend/internal/config"
	"playlog/backend/internal/db/migrate"
	"playlog/backend/internal/telemetry"
)

func main() {
	direction := flag.String("direction", "up", "up, down, or version to print the applied schema version")
	database := flag.String("database", "", "database URL (defaults to DATABASE_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := telemetry.NewLogger(os.Stderr, "playlog-migrate", cfg.Env)

	dsn := cfg.DatabaseURL
	if *database != "" {
		dsn = *database
	}

	if *direction == "version" {
		v, dirty, err := migrate.Version(dsn)
		if err != nil {
			logger.Error("schema version", "error", err)
			os.Exit(1)
		}
		fmt.Printf("%d dirty=%t\n", v, dirty)
		return
	}
	if err := migrate.Run(dsn, *direction); err != nil {
		logger.Error("migrate failed", "direction", *direction, "error", err)
		os.Exit(1)
	}
	logger.Info("migrate complete", "direction", *direction)
}
