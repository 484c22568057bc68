// Package sqlite persists Account and Provider metadata in a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	// sqlite driver registers itself as being available to the database/sql package.
	_ "github.com/mattn/go-sqlite3"

	keeper "github.com/fmitra/otpkeeper"
)

// Client represents a client for SQLite.
type Client struct {
	db          *sql.DB
	tx          *sql.Tx
	logger      log.Logger
	lockTimeout time.Duration

	accountRepository *AccountRepository
	accountQ          map[string]string

	providerRepository *ProviderRepository
	providerQ          map[string]string
}

func (c *Client) createQueries() {
	c.accountQ = map[string]string{
		"byID": `
			SELECT id, username, token_id, provider
			FROM accounts
			WHERE id = ?;
		`,
		"byProvider": `
			SELECT id, username, token_id, provider
			FROM accounts
			WHERE provider = ?
			ORDER BY username ASC;
		`,
		"all": `
			SELECT id, username, token_id, provider
			FROM accounts
			ORDER BY id ASC;
		`,
		"count": `
			SELECT COUNT(id) FROM accounts;
		`,
		"insert": `
			INSERT INTO accounts (username, token_id, provider)
			VALUES (?, ?, ?)
			RETURNING id;
		`,
		"delete": `
			DELETE FROM accounts WHERE id = ?;
		`,
		"search": `
			SELECT A.id, A.username, A.token_id, A.provider
			FROM accounts A
			JOIN providers P
			ON A.provider = P.id
			WHERE %s
			GROUP BY A.provider
			ORDER BY A.username ASC;
		`,
		"searchTerm": `(A.username LIKE ? ESCAPE '\' OR P.name LIKE ? ESCAPE '\')`,
		"update":     `UPDATE accounts SET %s WHERE id = ?;`,
	}

	c.providerQ = map[string]string{
		"byID": `
			SELECT id, name, website, doc_url, image
			FROM providers
			WHERE id = ?;
		`,
		"byName": `
			SELECT id, name, website, doc_url, image
			FROM providers
			WHERE lower(name) = lower(?)
			ORDER BY id ASC
			LIMIT 1;
		`,
		"all": `
			SELECT id, name, website, doc_url, image
			FROM providers
			ORDER BY name ASC;
		`,
		"allUsed": `
			SELECT id, name, website, doc_url, image
			FROM providers
			WHERE id IN (SELECT DISTINCT provider FROM accounts)
			ORDER BY name ASC;
		`,
		"count": `
			SELECT COUNT(id) FROM providers;
		`,
		"insert": `
			INSERT INTO providers (name, website, doc_url, image)
			VALUES (?, ?, ?, ?)
			RETURNING id;
		`,
		"delete": `
			DELETE FROM providers WHERE id = ?;
		`,
		"update": `UPDATE providers SET %s WHERE id = ?;`,
	}
}

// NewWithTransaction returns a new client with a transaction. All
// repository operations using the new client will default to the transaction.
func (c *Client) NewWithTransaction(ctx context.Context) (*Client, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	newClient := *c
	newClient.tx = tx
	newClient.accountRepository = &AccountRepository{client: &newClient}
	newClient.providerRepository = &ProviderRepository{client: &newClient}
	return &newClient, nil
}

// WithAtomic performs an operation within a transaction. If the operation
// is successful it commits it, otherwise the operation will be rolledback.
func (c *Client) WithAtomic(operation func() (interface{}, error)) (interface{}, error) {
	if c.tx == nil {
		return nil, fmt.Errorf("cannot complete operation outside of transaction")
	}

	defer func() {
		c.tx = nil
	}()

	entity, err := operation()

	if err != nil {
		if dbErr := c.tx.Rollback(); dbErr != nil {
			err = fmt.Errorf("%v: %w", dbErr, err)
		}
		return nil, err
	}

	err = c.tx.Commit()
	if err != nil {
		return entity, fmt.Errorf("commit failed: %w", err)
	}

	return entity, nil
}

// Account returns an AccountRepository.
func (c *Client) Account() keeper.AccountRepository {
	return c.accountRepository
}

// Provider returns a ProviderRepository.
func (c *Client) Provider() keeper.ProviderRepository {
	return c.providerRepository
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) queryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	if c.tx != nil {
		return c.tx.QueryRowContext(ctx, query, args...)
	}

	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Client) queryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}

	return c.db.QueryContext(ctx, query, args...)
}

func (c *Client) execContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}

	return c.db.ExecContext(ctx, query, args...)
}
