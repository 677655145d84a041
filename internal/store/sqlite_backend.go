package store

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"cipherkeep/internal/vault"
)

// entry is one row of a collection table.
type entry struct {
	Key       string `gorm:"column:entry_key;primaryKey"`
	Value     []byte `gorm:"column:entry_value;not null"`
	UpdatedAt time.Time
}

// SQLiteBackend keeps each vault collection in its own table.
type SQLiteBackend struct {
	db *gorm.DB
}

var _ vault.Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend opens (or creates) the database at path and makes sure
// every collection table exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite vault")
	}
	for _, c := range vault.Collections() {
		if err := db.Table(string(c)).AutoMigrate(&entry{}); err != nil {
			return nil, errors.Wrapf(err, "migrate %s", c)
		}
	}
	return &SQLiteBackend{db: db}, nil
}

// Load reads every collection table.
func (b *SQLiteBackend) Load(ctx context.Context) (map[vault.Collection]map[string][]byte, error) {
	out := make(map[vault.Collection]map[string][]byte)
	for _, c := range vault.Collections() {
		var rows []entry
		if err := b.db.WithContext(ctx).Table(string(c)).Find(&rows).Error; err != nil {
			return nil, errors.Wrapf(err, "load %s", c)
		}
		kv := make(map[string][]byte, len(rows))
		for _, r := range rows {
			kv[r.Key] = r.Value
		}
		out[c] = kv
	}
	return out, nil
}

// Put upserts key in the collection table.
func (b *SQLiteBackend) Put(ctx context.Context, c vault.Collection, key string, value []byte) error {
	row := entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).Table(string(c)).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	return errors.Wrapf(err, "put %s", c)
}

// Delete removes key from the collection table.
func (b *SQLiteBackend) Delete(ctx context.Context, c vault.Collection, key string) error {
	err := b.db.WithContext(ctx).Table(string(c)).
		Where("entry_key = ?", key).
		Delete(&entry{}).Error
	return errors.Wrapf(err, "delete %s", c)
}

// Close closes the underlying database handle.
func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
