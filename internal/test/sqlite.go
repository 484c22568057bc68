package test

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// sqlite driver registers itself as being available to the database/sql package.
	_ "github.com/mattn/go-sqlite3"

	keeper "github.com/fmitra/otpkeeper"
)

// SQLiteClient provides a test database.
type SQLiteClient struct {
	DB  *sql.DB
	dir string
}

// NewSQLiteDB returns a new database for testing in the current schema.
// Each database lives in its own temporary directory to avoid races
// between tests.
func NewSQLiteDB() (*SQLiteClient, error) {
	dir, err := os.MkdirTemp("", "otpkeeper_test_")
	if err != nil {
		return nil, fmt.Errorf("cannot create test directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(dir, "test.db")))
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cannot connect to test DB: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("no response to ping: %w", err)
	}

	_, err = db.Exec(keeper.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteClient{
		DB:  db,
		dir: dir,
	}, nil
}

// DropDB removes a recently created test database.
func (c *SQLiteClient) DropDB() error {
	c.DB.Close()
	return os.RemoveAll(c.dir)
}
