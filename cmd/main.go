package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/repositories"
	"github.com/desertthunder/plcover/internal/shared"
	"github.com/desertthunder/plcover/internal/ui"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	if err := config.ApplyEnv(".env"); err != nil {
		logger.Warn("failed to apply environment", "error", err)
	}

	db, err := shared.OpenDatabase(config.Store.Path)
	if err != nil {
		logger.Fatalf("database error: %v", err)
	}
	defer db.Close()

	kv, err := openKV(context.Background(), config, db, logger)
	if err != nil {
		logger.Fatalf("store error: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		KV:         kv,
		Selections: repositories.NewSelectionRepository(db),
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "plcover",
		Usage:   "Compose a 2x2 album cover and upload it to a Spotify playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			shared.SetVerbose(logger, cmd.Bool("verbose"))
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrSessionExpired):
			fmt.Fprintln(os.Stderr, ui.Styles.Err(err.Error()))
			fmt.Fprintln(os.Stderr, ui.Styles.Help("run `plcover auth login` to sign in again"))
			db.Close()
			os.Exit(1)
		default:
			db.Close()
			logger.Fatalf("application error: %v", err)
		}
	}
}

// openKV returns the session backend selected by store.backend.
func openKV(ctx context.Context, config *shared.Config, db *sql.DB, logger *log.Logger) (repositories.KV, error) {
	switch config.Store.Backend {
	case "redis":
		client, err := repositories.DialRedis(ctx, config.Store.RedisAddr)
		if err != nil {
			return nil, err
		}
		logger.Debug("using redis session store", "addr", config.Store.RedisAddr)
		return repositories.NewRedisKV(client, config.Store.RedisKey), nil
	default:
		return repositories.NewSQLiteKV(db), nil
	}
}
