// Package backup imports and exports Accounts in the JSON interchange
// format shared with other authenticator applications.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/otp"
	"github.com/fmitra/otpkeeper/internal/registry"
)

// Backup moves Accounts in and out of the registry.
type Backup struct {
	logger   log.Logger
	svc      *credential.Service
	registry *registry.Registry
}

// NewBackup returns a new Backup.
func NewBackup(svc *credential.Service, r *registry.Registry, logger log.Logger) *Backup {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Backup{
		logger:   logger,
		svc:      svc,
		registry: r,
	}
}

// Import creates an Account for every entry and adds it to the registry.
// Entries that fail are logged and skipped. It returns the number of
// Accounts imported.
func (b *Backup) Import(ctx context.Context, r io.Reader) (int, error) {
	var entries []credential.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, keeper.ErrBadRequest("invalid backup file")
	}

	imported := 0
	for i, e := range entries {
		if !otp.IsValidSecret(e.Secret) {
			level.Warn(b.logger).Log(
				"message", "skipping backup entry with invalid secret",
				"entry", i,
				"source", "backup.Import",
			)
			continue
		}

		a, err := b.svc.CreateFromBackup(ctx, e)
		if err != nil {
			level.Warn(b.logger).Log(
				"message", "skipping backup entry",
				"error", err,
				"entry", i,
				"source", "backup.Import",
			)
			continue
		}

		b.registry.Add(a.Provider(), a)
		imported++
	}

	return imported, nil
}

// Entries returns the backup entries of every Account with a secret.
func (b *Backup) Entries() []credential.Entry {
	entries := make([]credential.Entry, 0)
	for _, a := range b.registry.Accounts() {
		if e, ok := a.Backup(); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// Export writes every Account with a secret as JSON.
func (b *Backup) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b.Entries()); err != nil {
		return fmt.Errorf("cannot write backup: %w", err)
	}
	return nil
}
