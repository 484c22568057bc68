package sqlite

import (
	"database/sql"

	"github.com/go-kit/kit/log"
)

// TestClient returns a test client with necessary dependencies
// already provided.
func TestClient(db *sql.DB) *Client {
	return NewClient(
		WithLogger(log.NewNopLogger()),
		WithDB(db),
	)
}
