package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	migrations "github.com/flashpaperhq/flashpaper/db"
	"github.com/flashpaperhq/flashpaper/internal/accounts"
	"github.com/flashpaperhq/flashpaper/internal/config"
	"github.com/flashpaperhq/flashpaper/internal/db"
	"github.com/flashpaperhq/flashpaper/internal/logger"
	"github.com/flashpaperhq/flashpaper/internal/storage"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/version"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "flashpaperctl",
		Short:         "Administration tool for the flashpaper presence server",
		Version:       version.GetInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.toml")

	root.AddCommand(
		createUserCmd(),
		removeUserCmd(),
		setPasswordCmd(),
		migrateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger.L, nil
}

func openAccounts(ctx context.Context, cfg config.Config, log *slog.Logger) (*accounts.Service, func(), error) {
	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	blobs, err := storage.NewFilesystem(cfg.Avatars.Dir)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("avatar storage: %w", err)
	}
	return accounts.NewService(log, store.New(pool), blobs), pool.Close, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(raw), nil
}

func createUserCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create a local account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			if password == "" {
				password, err = readPassword("Password: ")
				if err != nil {
					return err
				}
			}

			svc, closeFn, err := openAccounts(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := svc.Create(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted if omitted)")
	return cmd
}

func removeUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-user <username>",
		Short: "Remove a local account and all its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			svc, closeFn, err := openAccounts(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("removed user %s\n", args[0])
			return nil
		},
	}
}

func setPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "set-password <username>",
		Short: "Replace an account's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			if password == "" {
				password, err = readPassword("New password: ")
				if err != nil {
					return err
				}
			}

			svc, closeFn, err := openAccounts(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.SetPassword(ctx, args[0], password); err != nil {
				return err
			}
			fmt.Printf("password updated for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted if omitted)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <up|down|version|force> [args]",
		Short: "Run database migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			migrationsFS, err := fs.Sub(migrations.MigrationsFS, "migrations")
			if err != nil {
				return fmt.Errorf("migrations fs: %w", err)
			}
			return db.RunMigrate(log, cfg.Postgres, migrationsFS, args[0], args[1:])
		},
	}
}
