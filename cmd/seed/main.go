// Command seed fills the database with demo accounts, loads and messages.
// It is safe to run more than once.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/DukeRupert/loadshare/internal"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/DukeRupert/loadshare/internal/service"
)

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	repo := repository.New(db)
	users := service.NewUserService(repo, logger, service.UserServiceConfig{SessionDuration: cfg.SessionTTL})
	loads := service.NewLoadService(repo, logger)

	seeder := service.Seeder{
		Queries:  repo,
		Users:    users,
		Loads:    loads,
		Messages: service.NewMessageService(repo, loads, logger),
		Logger:   logger,
	}
	result, err := seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	logger.Info("Seed complete",
		"users", result.Users,
		"loads", result.Loads,
		"messages", result.Messages,
	)
	fmt.Printf("Demo accounts use the password %q, test accounts %q\n", service.DemoPassword, service.TestPassword)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
