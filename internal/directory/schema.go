package directory

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Connect opens a bun handle on the Postgres database at dsn.
func Connect(ctx context.Context, dsn string) (*bun.DB, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqlDB, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "directory.Connect.Ping")
	}
	return db, nil
}

// CreateTables creates the directory schema if it does not exist yet.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []any{
		(*accountModel)(nil),
		(*deviceModel)(nil),
		(*oneTimePreKeyModel)(nil),
		(*custodyModel)(nil),
	}
	for _, t := range tables {
		if _, err := db.NewCreateTable().Model(t).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrapf(err, "directory.CreateTables %T", t)
		}
	}

	// Key ids are unique per device for the lifetime of the device, used or not.
	if _, err := db.NewCreateIndex().
		Model((*oneTimePreKeyModel)(nil)).
		Index("one_time_prekeys_device_key_id_idx").
		Unique().
		IfNotExists().
		Column("user_id", "device_id", "key_id").
		Exec(ctx); err != nil {
		return errors.Wrap(err, "directory.CreateTables.KeyIDIndex")
	}
	if _, err := db.NewCreateIndex().
		Model((*oneTimePreKeyModel)(nil)).
		Index("one_time_prekeys_available_idx").
		IfNotExists().
		Column("user_id", "device_id", "key_id").
		Where("used = false").
		Exec(ctx); err != nil {
		return errors.Wrap(err, "directory.CreateTables.AvailableIndex")
	}
	return nil
}
