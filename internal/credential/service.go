// Package credential provides the Account and Provider entities, joining
// stored metadata with vault secrets to produce one-time passwords.
package credential

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/crypto"
	"github.com/fmitra/otpkeeper/internal/otp"
)

// Service creates and loads Accounts and Providers.
type Service struct {
	logger   log.Logger
	repoMngr keeper.RepositoryManager
	store    keeper.SecretStore
	otpOpts  []otp.ConfigOption
	clock    func() time.Time
}

// Period returns the OTP period in seconds.
func (s *Service) Period() int {
	return otp.NewOptions(s.otpOpts...).Period
}

// Create stores a new Account. The metadata row is written before the
// secret. When the secret cannot be stored the row is left behind and
// resolves to an Account without code on the next load.
func (s *Service) Create(ctx context.Context, username, secret string, p *keeper.Provider) (*Account, error) {
	tokenID := crypto.TokenID(secret)

	row, err := s.repoMngr.Account().Create(ctx, username, tokenID, p.ID)
	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot add account",
			"error", err,
			"source", "credential.Create",
		)
		return nil, err
	}

	if err = s.store.Insert(tokenID, p.Name, username, secret); err != nil {
		level.Error(s.logger).Log(
			"message", "account stored without secret",
			"error", err,
			"account_id", row.ID,
			"source", "credential.Create",
		)
		return nil, err
	}

	return s.hydrate(row, p), nil
}

// CreateFromBackup stores an Account from a backup Entry. The first tag
// names the Provider, which is created when missing.
func (s *Service) CreateFromBackup(ctx context.Context, e Entry) (*Account, error) {
	p, err := s.ProviderOrCreate(ctx, e.ProviderName(keeper.DefaultProviderName))
	if err != nil {
		return nil, err
	}

	return s.Create(ctx, e.Label, e.Secret, p)
}

// ByID loads an Account.
func (s *Service) ByID(ctx context.Context, id int64) (*Account, error) {
	row, err := s.repoMngr.Account().ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := s.ProviderByID(ctx, row.ProviderID)
	if err != nil {
		return nil, err
	}

	return s.hydrate(row, p), nil
}

// ByProvider loads every Account of a Provider.
func (s *Service) ByProvider(ctx context.Context, p *keeper.Provider) ([]*Account, error) {
	rows, err := s.repoMngr.Account().ByProvider(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	accounts := make([]*Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, s.hydrate(row, p))
	}

	return accounts, nil
}

// Search loads the Accounts matching any of the terms, one per Provider.
func (s *Service) Search(ctx context.Context, terms []string) ([]*Account, error) {
	rows, err := s.repoMngr.Account().Search(ctx, terms)
	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot search accounts",
			"error", err,
			"source", "credential.Search",
		)
		return nil, err
	}

	accounts := make([]*Account, 0, len(rows))
	for _, row := range rows {
		p, err := s.ProviderByID(ctx, row.ProviderID)
		if err != nil {
			continue
		}
		accounts = append(accounts, s.hydrate(row, p))
	}

	return accounts, nil
}

// All loads every stored Account, including those whose secret is
// missing from the vault.
func (s *Service) All(ctx context.Context) ([]*Account, error) {
	rows, err := s.repoMngr.Account().All(ctx)
	if err != nil {
		level.Error(s.logger).Log(
			"message", "cannot load accounts",
			"error", err,
			"source", "credential.All",
		)
		return nil, err
	}

	providers := make(map[int64]*keeper.Provider)
	accounts := make([]*Account, 0, len(rows))
	for _, row := range rows {
		p, ok := providers[row.ProviderID]
		if !ok {
			p, err = s.ProviderByID(ctx, row.ProviderID)
			if err != nil {
				continue
			}
			providers[row.ProviderID] = p
		}
		accounts = append(accounts, s.hydrate(row, p))
	}

	return accounts, nil
}

// ProviderInUse reports whether any stored Account references a Provider.
func (s *Service) ProviderInUse(ctx context.Context, providerID int64) (bool, error) {
	rows, err := s.repoMngr.Account().ByProvider(ctx, providerID)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// CreateProvider stores a new Provider.
func (s *Service) CreateProvider(ctx context.Context, name, website, docURL, image string) (*keeper.Provider, error) {
	p := keeper.Provider{
		Name:    name,
		Website: nullString(website),
		DocURL:  nullString(docURL),
		Image:   nullString(image),
	}
	if err := s.repoMngr.Provider().Create(ctx, &p); err != nil {
		level.Error(s.logger).Log(
			"message", "cannot add provider",
			"error", err,
			"source", "credential.CreateProvider",
		)
		return nil, err
	}

	return &p, nil
}

// ProviderOrCreate returns the Provider with a name, ignoring case, and
// creates it without website, documentation or image when missing.
func (s *Service) ProviderOrCreate(ctx context.Context, name string) (*keeper.Provider, error) {
	p, err := s.ProviderByName(ctx, name)
	if err == nil {
		return p, nil
	}
	if keeper.ErrorCode(err) != keeper.ENotFound {
		return nil, err
	}

	return s.CreateProvider(ctx, name, "", "", "")
}

// ProviderByID loads a Provider.
func (s *Service) ProviderByID(ctx context.Context, id int64) (*keeper.Provider, error) {
	p, err := s.repoMngr.Provider().ByID(ctx, id)
	if err != nil {
		s.logLookup(err, "cannot load provider", "provider_id", id)
		return nil, err
	}
	return p, nil
}

// ProviderByName loads a Provider by name, ignoring case.
func (s *Service) ProviderByName(ctx context.Context, name string) (*keeper.Provider, error) {
	p, err := s.repoMngr.Provider().ByName(ctx, name)
	if err != nil {
		s.logLookup(err, "cannot load provider", "provider_name", name)
		return nil, err
	}
	return p, nil
}

// Providers lists Providers, optionally only those with Accounts.
func (s *Service) Providers(ctx context.Context, onlyUsed bool) ([]*keeper.Provider, error) {
	return s.repoMngr.Provider().All(ctx, onlyUsed)
}

// UpdateProvider overwrites the listed Provider fields.
func (s *Service) UpdateProvider(ctx context.Context, id int64, u keeper.ProviderUpdate) (*keeper.Provider, error) {
	if err := s.repoMngr.Provider().Update(ctx, id, u); err != nil {
		level.Error(s.logger).Log(
			"message", "cannot update provider",
			"error", err,
			"provider_id", id,
			"source", "credential.UpdateProvider",
		)
		return nil, err
	}

	return s.ProviderByID(ctx, id)
}

// RemoveProvider deletes a Provider.
func (s *Service) RemoveProvider(ctx context.Context, id int64) error {
	return s.repoMngr.Provider().Remove(ctx, id)
}

// hydrate builds a live Account, resolving its secret. A missing or
// invalid secret leaves the Account without a code.
func (s *Service) hydrate(row *keeper.Account, p *keeper.Provider) *Account {
	a := &Account{
		svc:      s,
		id:       row.ID,
		username: row.Username,
		tokenID:  row.TokenID,
		provider: p,
	}

	secret, ok := s.store.Lookup(row.TokenID)
	if !ok {
		level.Error(s.logger).Log(
			"message", "could not read the secret, the vault was reset",
			"account_id", row.ID,
			"source", "credential.hydrate",
		)
		return a
	}

	session, err := otp.NewSession(secret, s.clock(), s.otpOpts...)
	if err != nil {
		level.Error(s.logger).Log(
			"message", "stored secret is invalid",
			"error", err,
			"account_id", row.ID,
			"source", "credential.hydrate",
		)
		return a
	}
	a.session = session

	return a
}

func (s *Service) logLookup(err error, message string, keyvals ...interface{}) {
	logger := level.Error(s.logger)
	if keeper.ErrorCode(err) == keeper.ENotFound {
		logger = level.Debug(s.logger)
	}
	logger.Log(append([]interface{}{"message", message, "error", err, "source", "credential"}, keyvals...)...)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
