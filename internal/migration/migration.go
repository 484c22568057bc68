// Package migration applies ordered, dependency-aware schema changes to a
// SQL database and records which ones have already run.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Step is a single unit of work of a Migration.
type Step struct {
	// Apply runs inside the migration transaction.
	Apply func(ctx context.Context, tx *sql.Tx) error
	// IgnoreErrors discards a failure of this step. Only the changes of
	// the failed step are rolled back.
	IgnoreErrors bool
}

// Migration is an identified set of steps with predecessors.
type Migration struct {
	ID      string
	Depends []string
	Steps   []Step
}

// Exec returns a Step running a single SQL statement.
func Exec(query string, ignoreErrors bool) Step {
	return Step{
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, query)
			return err
		},
		IgnoreErrors: ignoreErrors,
	}
}

// Order sorts migrations so that every migration follows its
// predecessors. Migrations without an ordering constraint are sorted
// by ID. Duplicate IDs, unknown predecessors and cycles are errors.
func Order(migrations []Migration) ([]Migration, error) {
	byID := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		if _, ok := byID[m.ID]; ok {
			return nil, fmt.Errorf("duplicate migration %s", m.ID)
		}
		byID[m.ID] = m
	}

	pending := make(map[string]int, len(migrations))
	dependents := make(map[string][]string)
	for _, m := range migrations {
		for _, dep := range m.Depends {
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("migration %s depends on unknown migration %s", m.ID, dep)
			}
			dependents[dep] = append(dependents[dep], m.ID)
		}
		pending[m.ID] = len(m.Depends)
	}

	var ready []string
	for id, n := range pending {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]Migration, 0, len(migrations))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[id])

		for _, next := range dependents[id] {
			pending[next]--
			if pending[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(ordered) != len(migrations) {
		return nil, fmt.Errorf("migration dependencies contain a cycle")
	}

	return ordered, nil
}
