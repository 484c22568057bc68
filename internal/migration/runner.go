package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/oklog/ulid/v2"

	"github.com/fmitra/otpkeeper/internal/entropy"
)

const (
	opApply       = "apply"
	opIgnoredStep = "ignored-step"
)

var bookkeeping = []string{
	`CREATE TABLE IF NOT EXISTS "_migration" (
		"migration_id" TEXT PRIMARY KEY NOT NULL,
		"applied_at" TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS "_migration_log" (
		"id" TEXT PRIMARY KEY NOT NULL,
		"migration_id" TEXT NOT NULL,
		"operation" TEXT NOT NULL,
		"created_at" TIMESTAMP NOT NULL
	);`,
}

// Runner applies migrations to a database.
type Runner struct {
	db           *sql.DB
	logger       log.Logger
	entropy      ulid.MonotonicReader
	migrations   []Migration
	lockPath     string
	lockTimeout  time.Duration
	pollInterval time.Duration
}

// Applied returns the IDs of migrations recorded as applied.
func (r *Runner) Applied(ctx context.Context) (map[string]bool, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT migration_id FROM "_migration";`)
	if err != nil {
		return nil, fmt.Errorf("cannot read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return applied, nil
}

// Pending returns migrations not yet applied, in apply order.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	ordered, err := Order(r.migrations)
	if err != nil {
		return nil, err
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]Migration, 0, len(ordered))
	for _, m := range ordered {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}

	return pending, nil
}

// Apply runs every pending migration under an exclusive file lock and
// returns the IDs it applied. Running it again is a no-op.
func (r *Runner) Apply(ctx context.Context) ([]string, error) {
	if _, err := Order(r.migrations); err != nil {
		return nil, err
	}

	unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(pending))
	for _, m := range pending {
		if err := r.apply(ctx, m); err != nil {
			return applied, fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		level.Info(r.logger).Log(
			"message", "migration applied",
			"migration_id", m.ID,
			"source", "migration.Apply",
		)
		applied = append(applied, m.ID)
	}

	return applied, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = r.applySteps(ctx, tx, m)
	if err != nil {
		if dbErr := tx.Rollback(); dbErr != nil {
			err = fmt.Errorf("%v: %w", dbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

func (r *Runner) applySteps(ctx context.Context, tx *sql.Tx, m Migration) error {
	for i, step := range m.Steps {
		savepoint := fmt.Sprintf("step_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
			return err
		}

		stepErr := step.Apply(ctx, tx)
		if stepErr != nil && !step.IgnoreErrors {
			return stepErr
		}

		if stepErr != nil {
			level.Warn(r.logger).Log(
				"message", "ignoring failed migration step",
				"error", stepErr,
				"migration_id", m.ID,
				"step", i,
				"source", "migration.applySteps",
			)
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO "+savepoint); err != nil {
				return err
			}
			if err := r.log(ctx, tx, m.ID, opIgnoredStep); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
			return err
		}
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO "_migration" (migration_id, applied_at) VALUES (?, ?);`,
		m.ID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cannot record migration: %w", err)
	}

	return r.log(ctx, tx, m.ID, opApply)
}

func (r *Runner) log(ctx context.Context, tx *sql.Tx, migrationID, operation string) error {
	id, err := entropy.ID(r.entropy)
	if err != nil {
		return fmt.Errorf("cannot generate log ID: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO "_migration_log" (id, migration_id, operation, created_at) VALUES (?, ?, ?, ?);`,
		id,
		migrationID,
		operation,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cannot write migration log: %w", err)
	}

	return nil
}

func (r *Runner) ensureTables(ctx context.Context) error {
	for _, q := range bookkeeping {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("cannot create migration tables: %w", err)
		}
	}
	return nil
}

// lock acquires the file lock, polling until the lock timeout expires.
// No lock is taken without a lock path.
func (r *Runner) lock(ctx context.Context) (func(), error) {
	if r.lockPath == "" {
		return func() {}, nil
	}

	deadline := time.Now().Add(r.lockTimeout)
	for {
		release, err := tryLock(r.lockPath)
		if err == nil {
			return release, nil
		}
		if err != errLocked {
			return nil, fmt.Errorf("cannot lock %s: %w", r.lockPath, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock %s", r.lockPath)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}
