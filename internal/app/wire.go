package app

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"cipherkeep/internal/config"
	"cipherkeep/internal/directory"
	"cipherkeep/internal/directory/mongostore"
	"cipherkeep/internal/server"
)

// DirectoryServer is a configured key directory and the resources it holds.
type DirectoryServer struct {
	*server.Server
	closers []func(context.Context) error
}

// NewDirectoryServer builds the key directory from cfg.
func NewDirectoryServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*DirectoryServer, error) {
	ds := &DirectoryServer{}

	var st directory.Store
	switch cfg.Directory.Store {
	case "postgres":
		db, err := directory.Connect(ctx, cfg.Directory.PostgresDSN)
		if err != nil {
			return nil, err
		}
		ds.closers = append(ds.closers, func(context.Context) error { return db.Close() })
		if err := directory.CreateTables(ctx, db); err != nil {
			_ = ds.Close(ctx)
			return nil, err
		}
		st = directory.NewPostgresStore(db)
		log.Info("directory store", "store", "postgres")
	default:
		st = directory.NewMemoryStore()
		log.Warn("directory store is in memory; data is lost on restart")
	}

	if cfg.Directory.MongoURI != "" {
		cs, err := mongostore.Open(ctx, cfg.Directory.MongoURI, cfg.Directory.MongoDB, cfg.Directory.MongoCollection)
		if err != nil {
			_ = ds.Close(ctx)
			return nil, err
		}
		ds.closers = append(ds.closers, cs.Close)
		st = directory.WithCustody(st, cs)
		log.Info("custody store", "store", "mongodb", "db", cfg.Directory.MongoDB)
	}

	srv, err := server.New(cfg.Server, st, log.With("component", "server"))
	if err != nil {
		_ = ds.Close(ctx)
		return nil, errors.Wrap(err, "build server")
	}
	ds.Server = srv
	return ds, nil
}

// Close releases the store connections.
func (d *DirectoryServer) Close(ctx context.Context) error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
