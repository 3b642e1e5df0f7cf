// Package main applies or inspects the pharmledger schema migrations.
//
// Usage:
//
//	migrate up
//	migrate down
//	migrate version
//	migrate force <version>
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"pharmledger/internal/config"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Println("usage: migrate up|down|version|force <version>")
		os.Exit(2)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)
	m, err := postgres.NewMigrator(ctx, postgres.MigrationConfig{
		DatabaseURL:      cfg.Database.URL,
		StatementTimeout: cfg.Database.StatementTimeout,
	})
	if err != nil {
		log.Fatalw("failed to open migrator", "error", err)
	}
	defer m.Close()

	if err := run(ctx, m, os.Args[1:]); err != nil {
		log.Fatalw("migration command failed", "command", os.Args[1], "error", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalw("failed to read schema version", "error", err)
	}
	log.Infow("schema version", "version", version, "dirty", dirty)
}

func run(ctx context.Context, m *postgres.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "version":
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force requires a version")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return m.Force(ctx, v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
