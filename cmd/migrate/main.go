package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nebulacloud/console/internal/app/migrate"
	"github.com/nebulacloud/console/pkg/config"
	"github.com/nebulacloud/console/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))

	app := &cli.App{
		Name:  "nebula-migrate",
		Usage: "Manage the Nebula console database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
				Value:   cfg.DatabaseURL,
			},
			&cli.StringFlag{
				Name:    "dir",
				Usage:   "Read migrations from this directory instead of the embedded set",
				EnvVars: []string{"DB_MIGRATIONS_DIR"},
				Value:   cfg.MigrationsDir,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Command timeout",
				Value: time.Minute,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply pending migrations",
				Action: func(c *cli.Context) error {
					return withRunner(c, log, func(ctx context.Context, r migrate.Runner) error {
						return r.Up(ctx)
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show applied and pending migrations",
				Action: func(c *cli.Context) error {
					return withRunner(c, log, func(ctx context.Context, r migrate.Runner) error {
						return r.Status(ctx)
					})
				},
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: func(c *cli.Context) error {
					return withRunner(c, log, func(ctx context.Context, r migrate.Runner) error {
						v, err := r.Version(ctx)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, v)
						return nil
					})
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the latest migration, or down to --target",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "target",
						Usage: "Target version (0 rolls back one step)",
					},
				},
				Action: func(c *cli.Context) error {
					return withRunner(c, log, func(ctx context.Context, r migrate.Runner) error {
						return r.Down(ctx, c.Int64("target"))
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("migration command failed", "error", err)
		os.Exit(1)
	}
}

func withRunner(c *cli.Context, log *slog.Logger, fn func(context.Context, migrate.Runner) error) error {
	runner, err := migrate.New(c.String("database-url"), c.String("dir"), log)
	if err != nil {
		return fmt.Errorf("configure migration runner: %w", err)
	}
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
	defer cancel()
	if err := fn(ctx, runner); err != nil {
		return err
	}
	log.Info("migration command completed", "command", c.Command.Name)
	return nil
}
