package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/config"
	"github.com/vango-dev/uiregistry/internal/contacts"
	"github.com/vango-dev/uiregistry/internal/registry"
	"github.com/vango-dev/uiregistry/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry API",
		Long: `Serve the registry manifest, file trees and file contents over HTTP.

The registry is read from registry.dir, or from registry.s3.bucket when set.
A local registry is reloaded when its files change; an S3 registry is
reloaded on the registry.refresh schedule. Subscribers to
/api/registry/events are told about every reload.

When database.driver is set, the contacts table API is served as well.

Examples:
  uiregistry serve
  uiregistry serve --port 9000 --registry-dir ./ui
  uiregistry serve --db-driver sqlite --db-dsn contacts.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("host", config.DefaultHost, "Host to listen on")
	flags.IntP("port", "p", config.DefaultPort, "Port to listen on")
	flags.String("registry-dir", ".", "Directory holding registry.json")
	flags.String("db-driver", "", "Contacts database driver: pgx or sqlite")
	flags.String("db-dsn", "", "Contacts database connection string")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("starting uiregistry", "version", version, "config", cfg.String())

	reg := newRegistry(cfg, logger.Logger)
	opts := []server.Option{server.WithLogger(logger.Logger)}

	if cfg.Database.Enabled() {
		store, err := openStore(ctx, cfg, logger.Logger)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithContacts(store))
	}

	srv, err := server.New(cfg, reg, opts...)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// newRegistry builds the registry over the configured source.
func newRegistry(cfg *config.Config, logger *slog.Logger) *registry.Registry {
	var source registry.Source
	if s3cfg := cfg.Registry.S3; s3cfg.Enabled() {
		source = registry.NewS3Source(registry.NewS3Client(s3cfg), s3cfg.Bucket, s3cfg.Prefix)
	} else {
		source = registry.NewDirSource(cfg.RegistryDir())
	}
	return registry.New(source,
		registry.WithLogger(logger),
		registry.WithTreePrefix(cfg.Registry.Prefix),
	)
}

// openStore opens the contacts database and applies migrations when
// database.migrate is set.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*contacts.Store, error) {
	store, err := contacts.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, contacts.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}
