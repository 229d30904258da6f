package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/shared"
	"github.com/desertthunder/plcover/internal/ui"
)

// Setup writes config.toml from the template when missing and migrates the configured database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return err
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", config.Store.Path)
	db, err := shared.OpenDatabase(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.writePlain("%s\n", ui.Styles.OK("setup complete"))
	r.writePlain("Config: %s\nDatabase: %s\n", path, config.Store.Path)
	if config.Spotify.ClientID == "" && r.config.Spotify.ClientID == "" {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set spotify.client_id in %s or %s in .env\n", path, shared.ClientIDEnv)
		r.writePlain("2. Run 'plcover auth login'\n")
	}
	return nil
}
