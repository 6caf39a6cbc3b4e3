package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/contacts"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply contacts database migrations",
		Long: `Apply pending migrations to the contacts database and print the
resulting schema version.

Examples:
  uiregistry migrate --db-driver sqlite --db-dsn contacts.db
  UIREGISTRY_DATABASE__DSN=postgres://localhost/ui uiregistry migrate --db-driver pgx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd)
		},
	}

	cmd.Flags().String("db-driver", "", "Database driver: pgx or sqlite")
	cmd.Flags().String("db-dsn", "", "Database connection string")

	return cmd
}

func runMigrate(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return errorf("database.driver is not set; use --db-driver")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	store, err := contacts.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, contacts.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}
	v, err := store.Version(ctx)
	if err != nil {
		return err
	}
	success("Contacts database at version %d", v)
	return nil
}
