package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log/level"

	"github.com/fmitra/otpkeeper/internal/migration"
)

const (
	// Version is the generation of the database file.
	Version = 7
	// legacyCutover is the oldest file generation still migrated.
	legacyCutover = 3
)

// FileName returns the database file name of a generation.
func FileName(version int) string {
	return fmt.Sprintf("database-%d.db", version)
}

// Open prepares the database file in dir, applies pending migrations
// and returns a client for it.
func Open(ctx context.Context, dir string, options ...ConfigOption) (*Client, error) {
	c := NewClient(options...)

	path, err := prepareFile(dir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("no response to ping: %w", err)
	}

	runner := migration.NewRunner(
		migration.WithDB(db),
		migration.WithLogger(c.logger),
		migration.WithLockFile(path+".lock"),
		migration.WithLockTimeout(c.lockTimeout),
		migration.WithMigrations(Migrations()...),
	)
	if _, err = runner.Apply(ctx); err != nil {
		db.Close()
		return nil, err
	}

	level.Info(c.logger).Log(
		"message", "database ready",
		"path", path,
		"source", "sqlite.Open",
	)

	c.db = db
	return c, nil
}

// prepareFile returns the path of the current database file. The newest
// legacy generation, if any, is moved to the current name.
func prepareFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create database directory: %w", err)
	}

	current := filepath.Join(dir, FileName(Version))
	if _, err := os.Stat(current); err == nil {
		return current, nil
	}

	for v := Version - 1; v >= legacyCutover; v-- {
		legacy := filepath.Join(dir, FileName(v))
		if _, err := os.Stat(legacy); err != nil {
			continue
		}
		if err := os.Rename(legacy, current); err != nil {
			return "", fmt.Errorf("cannot move legacy database: %w", err)
		}
		return current, nil
	}

	return current, nil
}
