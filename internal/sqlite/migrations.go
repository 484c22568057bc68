package sqlite

import (
	"context"
	"database/sql"
	// embed provides the default provider catalogue.
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/migration"
)

const (
	migrationAccounts        = "20190525_01_create-table-accounts"
	migrationProviders       = "20190525_02_create-table-providers"
	migrationDefaults        = "20190525_03_add-default-providers"
	migrationRestoreAccounts = "20190525_04_restore-old-accounts"
	migrationProviderImages  = "20190529_01_empty-unneeded-provider-images"
)

//go:embed providers.yaml
var providerCatalogue []byte

// CatalogueEntry is a well known Provider seeded on first run.
type CatalogueEntry struct {
	Name    string `yaml:"name"`
	Website string `yaml:"website"`
	DocURL  string `yaml:"doc_url"`
}

// DefaultProviders returns the embedded Provider catalogue.
func DefaultProviders() ([]CatalogueEntry, error) {
	var entries []CatalogueEntry
	if err := yaml.Unmarshal(providerCatalogue, &entries); err != nil {
		return nil, fmt.Errorf("invalid provider catalogue: %w", err)
	}

	return entries, nil
}

// Migrations returns every schema migration of the database.
func Migrations() []migration.Migration {
	return []migration.Migration{
		{
			ID: migrationAccounts,
			Steps: []migration.Step{
				migration.Exec(`
					CREATE TABLE "accounts" (
						"id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL UNIQUE,
						"username" VARCHAR NOT NULL,
						"provider" VARCHAR NOT NULL,
						"secret_id" VARCHAR NOT NULL UNIQUE
					);
				`, true),
			},
		},
		{
			ID:      migrationProviders,
			Depends: []string{migrationAccounts},
			Steps:   []migration.Step{migration.Exec(keeper.ProvidersTable, true)},
		},
		{
			ID:      migrationDefaults,
			Depends: []string{migrationProviders},
			Steps:   []migration.Step{{Apply: addDefaultProviders, IgnoreErrors: true}},
		},
		{
			ID:      migrationRestoreAccounts,
			Depends: []string{migrationDefaults},
			Steps:   []migration.Step{{Apply: restoreAccounts, IgnoreErrors: true}},
		},
		{
			ID:      migrationProviderImages,
			Depends: []string{migrationRestoreAccounts},
			Steps:   []migration.Step{{Apply: emptyProviderImages, IgnoreErrors: true}},
		},
	}
}

// addDefaultProviders seeds the catalogue, skipping names that already
// exist in any letter case.
func addDefaultProviders(ctx context.Context, tx *sql.Tx) error {
	entries, err := DefaultProviders()
	if err != nil {
		return err
	}

	names, err := stringColumn(ctx, tx, `SELECT name FROM providers;`)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[strings.ToLower(name)] = true
	}

	for _, e := range entries {
		if existing[strings.ToLower(e.Name)] {
			continue
		}
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO providers (name, website, doc_url) VALUES (?, ?, ?);`,
			e.Name, e.Website, e.DocURL,
		)
		if err != nil {
			return err
		}
		existing[strings.ToLower(e.Name)] = true
	}

	return nil
}

type legacyAccount struct {
	id         int64
	username   string
	provider   string
	providerID int64
	secretID   string
}

// restoreAccounts rebuilds the legacy accounts table, which embedded
// the provider name, into the current shape referencing provider rows.
// Duplicate token IDs keep their first row.
func restoreAccounts(ctx context.Context, tx *sql.Tx) error {
	columns, err := stringColumn(ctx, tx, `SELECT name FROM pragma_table_info('accounts');`)
	if err != nil {
		return err
	}
	if !contains(columns, "secret_id") {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, username, provider, secret_id FROM accounts ORDER BY id;`)
	if err != nil {
		return err
	}
	var accounts []legacyAccount
	for rows.Next() {
		a := legacyAccount{}
		if err := rows.Scan(&a.id, &a.username, &a.provider, &a.secretID); err != nil {
			rows.Close()
			return err
		}
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	providers := make(map[string]int64)
	rows, err = tx.QueryContext(ctx, `SELECT id, name FROM providers;`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		providers[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for i, a := range accounts {
		id, ok := providers[a.provider]
		if !ok {
			row := tx.QueryRowContext(ctx, `INSERT INTO providers (name) VALUES (?) RETURNING id;`, a.provider)
			if err := row.Scan(&id); err != nil {
				return err
			}
			providers[a.provider] = id
		}
		accounts[i].providerID = id
	}

	statements := []string{
		`ALTER TABLE accounts RENAME TO accounts_legacy;`,
		keeper.AccountsTable,
		`DROP TABLE accounts_legacy;`,
	}
	for _, q := range statements {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	for _, a := range accounts {
		_, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO accounts (id, username, token_id, provider) VALUES (?, ?, ?, ?);`,
			a.id, a.username, a.secretID, a.providerID,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// emptyProviderImages blanks images that are bare file names rather
// than paths.
func emptyProviderImages(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, image FROM providers WHERE image IS NOT NULL AND image != '';`)
	if err != nil {
		return err
	}

	var ids []int64
	for rows.Next() {
		var (
			id    int64
			image string
		)
		if err := rows.Scan(&id, &image); err != nil {
			rows.Close()
			return err
		}
		if filepath.Base(image) == image {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE providers SET image = '' WHERE id = ?;`, id); err != nil {
			return err
		}
	}

	return nil
}

func stringColumn(ctx context.Context, tx *sql.Tx, query string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
