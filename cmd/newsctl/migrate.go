package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/newsdesk/backend/internal/infrastructure/config"
	"github.com/newsdesk/backend/internal/infrastructure/migration"
	"github.com/newsdesk/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or create schema migrations",
	}
	cmd.PersistentFlags().StringVar(&path, "path", defaultMigrationsPath, "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, path, func(ctx context.Context, cfg *config.Config, log *zap.Logger, m *migration.Migrator) error {
				if m == nil {
					return autoMigrateSQLite(ctx, cfg, log)
				}
				return m.Up()
			})
		},
	}

	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations; without steps every migration is rolled back",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid steps %q: must be a positive integer", args[0])
				}
				steps = n
			}
			return withMigrator(cmd, opts, path, func(_ context.Context, cfg *config.Config, _ *zap.Logger, m *migration.Migrator) error {
				if m == nil {
					return fmt.Errorf("migrate down is not supported for the %s driver", cfg.Database.Driver)
				}
				return m.Down(steps)
			})
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, opts, path, func(_ context.Context, cfg *config.Config, _ *zap.Logger, m *migration.Migrator) error {
				if m == nil {
					return fmt.Errorf("schema versions are not tracked for the %s driver", cfg.Database.Driver)
				}
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				out := struct {
					Version uint `json:"version"`
					Dirty   bool `json:"dirty"`
				}{v, dirty}
				return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
					fmt.Fprintf(w, "version %d (dirty: %t)\n", v, dirty)
				})
			})
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withMigrator(cmd, opts, path, func(_ context.Context, cfg *config.Config, _ *zap.Logger, m *migration.Migrator) error {
				if m == nil {
					return fmt.Errorf("migrate force is not supported for the %s driver", cfg.Database.Driver)
				}
				return m.Force(v)
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(path, args[0], description)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, mf, func(w io.Writer) {
				fmt.Fprintln(w, mf.UpPath)
				fmt.Fprintln(w, mf.DownPath)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List migration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(path)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, names, func(w io.Writer) {
				for _, name := range names {
					fmt.Fprintln(w, name)
				}
			})
		},
	}

	cmd.AddCommand(up, down, version, force, create, list)
	return cmd
}

// withMigrator opens a migrator for postgres. For sqlite fn receives a nil migrator.
func withMigrator(
	cmd *cobra.Command,
	opts *globalOptions,
	path string,
	fn func(ctx context.Context, cfg *config.Config, log *zap.Logger, m *migration.Migrator) error,
) error {
	ctx, cfg, log, _, err := loadBase(cmd.Context(), opts, cmd.CommandPath())
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.Driver == config.DriverSQLite {
		return fn(ctx, cfg, log, nil)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	m, err := migration.Open(cfg.Database.DSN(), absPath, log)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return fn(ctx, cfg, log, m)
}

func autoMigrateSQLite(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithDatabaseLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(ctx); err != nil {
		return err
	}
	log.Info("sqlite schema up to date", zap.String("path", cfg.Database.SQLitePath))
	return nil
}
