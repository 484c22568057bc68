package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	// sqlite driver registers itself as being available to the database/sql package.
	_ "github.com/mattn/go-sqlite3"
)

func newTestDB(t *testing.T) (*sql.DB, string) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal("failed to open database:", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func ids(migrations []Migration) []string {
	out := make([]string, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, m.ID)
	}
	return out
}

func TestMigration_Order(t *testing.T) {
	tt := []struct {
		name       string
		migrations []Migration
		want       []string
		hasErr     bool
	}{
		{
			name: "Dependencies first",
			migrations: []Migration{
				{ID: "c", Depends: []string{"b"}},
				{ID: "b", Depends: []string{"a"}},
				{ID: "a"},
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "Independent migrations sorted by ID",
			migrations: []Migration{
				{ID: "b"},
				{ID: "d", Depends: []string{"a"}},
				{ID: "a"},
				{ID: "c", Depends: []string{"a"}},
			},
			want: []string{"a", "b", "c", "d"},
		},
		{
			name: "Unknown dependency",
			migrations: []Migration{
				{ID: "a", Depends: []string{"missing"}},
			},
			hasErr: true,
		},
		{
			name: "Cycle",
			migrations: []Migration{
				{ID: "a", Depends: []string{"b"}},
				{ID: "b", Depends: []string{"a"}},
			},
			hasErr: true,
		},
		{
			name: "Duplicate ID",
			migrations: []Migration{
				{ID: "a"},
				{ID: "a"},
			},
			hasErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ordered, err := Order(tc.migrations)
			if tc.hasErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.hasErr && err != nil {
				t.Fatal("unexpected error:", err)
			}
			if tc.hasErr {
				return
			}
			if !cmp.Equal(ids(ordered), tc.want) {
				t.Error(cmp.Diff(ids(ordered), tc.want))
			}
		})
	}
}

func TestRunner_ApplyIsIdempotent(t *testing.T) {
	db, path := newTestDB(t)
	ctx := context.Background()

	calls := 0
	runner := NewRunner(
		WithDB(db),
		WithLockFile(path+".lock"),
		WithMigrations(
			Migration{
				ID:    "01_create",
				Steps: []Step{Exec(`CREATE TABLE item (id INTEGER PRIMARY KEY, name TEXT);`, false)},
			},
			Migration{
				ID:      "02_insert",
				Depends: []string{"01_create"},
				Steps: []Step{{
					Apply: func(ctx context.Context, tx *sql.Tx) error {
						calls++
						_, err := tx.ExecContext(ctx, `INSERT INTO item (name) VALUES ('a');`)
						return err
					},
				}},
			},
		),
	)

	applied, err := runner.Apply(ctx)
	if err != nil {
		t.Fatal("failed to apply migrations:", err)
	}
	if !cmp.Equal(applied, []string{"01_create", "02_insert"}) {
		t.Error(cmp.Diff(applied, []string{"01_create", "02_insert"}))
	}

	applied, err = runner.Apply(ctx)
	if err != nil {
		t.Fatal("failed to reapply migrations:", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations applied, got %v", applied)
	}
	if calls != 1 {
		t.Errorf("incorrect step calls, want 1 got %v", calls)
	}

	var logCount int
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "_migration_log" WHERE operation = 'apply';`)
	if err := row.Scan(&logCount); err != nil {
		t.Fatal("failed to count log entries:", err)
	}
	if logCount != 2 {
		t.Errorf("incorrect log entries, want 2 got %v", logCount)
	}
}

func TestRunner_IgnoredStepRollsBackOnlyItself(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	runner := NewRunner(
		WithDB(db),
		WithMigrations(Migration{
			ID: "01",
			Steps: []Step{
				Exec(`CREATE TABLE item (id INTEGER PRIMARY KEY, name TEXT);`, false),
				{
					Apply: func(ctx context.Context, tx *sql.Tx) error {
						if _, err := tx.ExecContext(ctx, `INSERT INTO item (name) VALUES ('discarded');`); err != nil {
							return err
						}
						return errors.New("step failed")
					},
					IgnoreErrors: true,
				},
				Exec(`INSERT INTO item (name) VALUES ('kept');`, false),
			},
		}),
	)

	if _, err := runner.Apply(ctx); err != nil {
		t.Fatal("failed to apply migrations:", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM item;`)
	if err != nil {
		t.Fatal("failed to query items:", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatal(err)
		}
		names = append(names, name)
	}
	if !cmp.Equal(names, []string{"kept"}) {
		t.Error(cmp.Diff(names, []string{"kept"}))
	}
}

func TestRunner_FailedStepRollsBackMigration(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	runner := NewRunner(
		WithDB(db),
		WithMigrations(Migration{
			ID: "01",
			Steps: []Step{
				Exec(`CREATE TABLE item (id INTEGER PRIMARY KEY);`, false),
				Exec(`INSERT INTO missing_table VALUES (1);`, false),
			},
		}),
	)

	if _, err := runner.Apply(ctx); err == nil {
		t.Fatal("expected migration failure, got nil")
	}

	var count int
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'item';`)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("expected table creation to be rolled back")
	}

	pending, err := runner.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(ids(pending), []string{"01"}) {
		t.Error(cmp.Diff(ids(pending), []string{"01"}))
	}
}

func TestRunner_ConfigurationErrorBeforeApply(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	runner := NewRunner(
		WithDB(db),
		WithMigrations(
			Migration{ID: "01", Steps: []Step{Exec(`CREATE TABLE item (id INTEGER);`, false)}},
			Migration{ID: "02", Depends: []string{"missing"}},
		),
	)

	if _, err := runner.Apply(ctx); err == nil {
		t.Fatal("expected configuration error, got nil")
	}

	var count int
	row := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'item';`)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("expected no migration to be applied")
	}
}

func TestRunner_LockTimeout(t *testing.T) {
	db, path := newTestDB(t)
	lockPath := path + ".lock"

	release, err := tryLock(lockPath)
	if err != nil {
		t.Fatal("failed to take lock:", err)
	}
	defer release()

	runner := NewRunner(
		WithDB(db),
		WithLockFile(lockPath),
		WithLockTimeout(100*time.Millisecond),
		WithMigrations(Migration{ID: "01"}),
	)

	if _, err := runner.Apply(context.Background()); err == nil {
		t.Error("expected lock timeout, got nil")
	}
}
