package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/db/bunx"
	"github.com/terraconstructs/kcbridge/cmd/kcbridge/internal/migrations"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

// withMigrator opens the configured database and hands a migrator to fn.
func withMigrator(fn func(ctx context.Context, db *bun.DB, migrator *migrate.Migrator) error) error {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxOpenConns(cfg.MaxDBConnections))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer bunx.Close(db)

	return fn(context.Background(), db, migrate.NewMigrator(db, migrations.Migrations))
}

// withLock runs fn while holding the migration lock.
func withLock(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			logger.WithField("error", err.Error()).Warn("failed to release migration lock")
		}
	}()
	return fn()
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration tracking tables in the database. Run this once during initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, _ *bun.DB, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			logger.Info("migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations, including the default role seed, with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, _ *bun.DB, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			return withLock(ctx, migrator, func() error {
				group, err := migrator.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("no new migrations to apply")
				} else {
					logger.WithField("group", group.ID).Info("applied migration group")
				}
				return nil
			})
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  `Displays the database dialect, applied migrations and pending migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, db *bun.DB, migrator *migrate.Migrator) error {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			dialect := "unknown"
			switch {
			case migrations.IsPostgreSQL(db):
				dialect = "postgres"
			case migrations.IsSQLite(db):
				dialect = "sqlite"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", dialect)
			fmt.Fprintln(out, "Migrations:")
			for _, m := range ms {
				status := "pending"
				if m.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", m.GroupID)
				}
				fmt.Fprintf(out, "  %s: %s\n", m.Name, status)
			}
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	Long:  `Rolls back the most recently applied migration group with locking to prevent concurrent operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, _ *bun.DB, migrator *migrate.Migrator) error {
			return withLock(ctx, migrator, func() error {
				group, err := migrator.Rollback(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("no migrations to rollback")
				} else {
					logger.WithField("group", group.ID).Info("rolled back migration group")
				}
				return nil
			})
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Force releases the migration lock. Use this if a migration crashed while holding the lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, _ *bun.DB, migrator *migrate.Migrator) error {
			if err := migrator.Unlock(ctx); err != nil {
				return fmt.Errorf("failed to release migration lock: %w", err)
			}
			logger.Info("migration lock released")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbUnlockCmd)
}
