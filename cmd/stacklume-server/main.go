package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mikepea/stacklume/pkg/stacklume/backup"
	"github.com/mikepea/stacklume/pkg/stacklume/config"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/server"
	"github.com/urfave/cli/v3"
)

// @title Stacklume API
// @version 1.0
// @description Bookmark dashboard backend: backups, restore, import and export.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := config.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := server.NewLogger(cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.Int("retention_limit", cfg.Backup.RetentionLimit),
		slog.Duration("auto_interval", cfg.Backup.AutoInterval),
		slog.String("log_level", cfg.App.LogLevel.String()))

	app, err := server.Open(cfg, logger)
	if err != nil {
		return err
	}
	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func backupOnce(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := server.NewLogger(cfg.App.LogLevel)

	userID := cmd.Uint("user")
	if userID == 0 {
		return fmt.Errorf("--user is required")
	}

	app, err := server.Open(cfg, logger)
	if err != nil {
		return err
	}
	snap, err := app.Backups.CreateSnapshot(ctx, uint(userID), models.SnapshotTypeManual, backup.IncludeAll())
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "stacklume-server",
		Usage:  "Bookmark dashboard backend with backups, restore and import",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "backup",
				Usage:  "Create a manual snapshot for one account and print its metadata",
				Action: backupOnce,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "user",
						Usage:    "Account id to snapshot",
						Required: true,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
