// Command moneytrailctl administers a Moneytrail deployment: schema
// migrations and account maintenance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/moneytrail/moneytrail/internal/repository"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("moneytrailctl failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "moneytrailctl",
		Usage: "Administer the Moneytrail database and accounts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection string",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the identity cache (optional)",
				EnvVars: []string{"REDIS_URL"},
			},
		},
		Commands: []*cli.Command{
			migrateCmd(),
			userCmd(),
		},
	}
}

// openRepository connects to the database named by --database-url.
func openRepository(c *cli.Context) (*repository.Repository, error) {
	repo, err := repository.New(c.Context, c.String("database-url"))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return repo, nil
}
