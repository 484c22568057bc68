package sqlite

import (
	"database/sql"
	"time"

	"github.com/go-kit/kit/log"
)

const defaultLockTimeout = 10 * time.Second

// NewClient returns a new SQLite client to manage repositories.
func NewClient(options ...ConfigOption) *Client {
	c := Client{
		logger:             log.NewNopLogger(),
		lockTimeout:        defaultLockTimeout,
		accountRepository:  &AccountRepository{},
		providerRepository: &ProviderRepository{},
	}

	for _, opt := range options {
		opt(&c)
	}

	c.createQueries()

	// Each repository has an embedded client to ensure they
	// use the same connection and are able to share transactions.
	c.accountRepository.client = &c
	c.providerRepository.client = &c

	return &c
}

// ConfigOption configures the Client.
type ConfigOption func(*Client)

// WithLogger configures the client with a Logger.
func WithLogger(l log.Logger) ConfigOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDB configures the client with a SQLite DB.
func WithDB(db *sql.DB) ConfigOption {
	return func(c *Client) {
		c.db = db
	}
}

// WithLockTimeout sets how long Open waits for the migration lock.
func WithLockTimeout(d time.Duration) ConfigOption {
	return func(c *Client) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}
