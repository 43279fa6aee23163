package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"perftrack/internal/app/server"
	"perftrack/internal/domain/cycles"
	"perftrack/internal/domain/directory"
	"perftrack/internal/platform/config"
	"perftrack/internal/platform/db"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "perftrack",
		Short:         "Goal and performance review workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand())
	return cmd
}

// loadConfig reads the environment, validates it and installs the default logger.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	slog.SetDefault(cfg.NewLogger())
	return cfg, nil
}

func newServeCommand() *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if seedFile != "" {
				cfg.SeedFile = seedFile
			}
			if cfg.JWTSecret == "" {
				slog.Warn("JWT_SECRET is empty; bearer tokens cannot be verified")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "organisation YAML file applied at startup")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.DriverPostgres)
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Migrate(cmd.Context(), pool, cfg.MigrationsDir)
		},
	}
}

func newSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and review cycles from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return fmt.Errorf("seed requires STORAGE_DRIVER=%s; the memory driver takes --seed on serve", config.DriverPostgres)
			}
			org, err := db.LoadOrgFile(file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if cfg.RunMigrations {
				if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
					return err
				}
			}
			res, err := db.Seed(ctx, directory.NewStore(pool), cycles.NewStore(pool), org)
			if err != nil {
				return err
			}
			slog.Info("seed complete", "usersCreated", res.UsersCreated, "cyclesCreated", res.CyclesCreated)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "organisation YAML file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
