// Package otpkeeper stores two-factor authentication credentials and
// keeps their one-time passwords refreshed.
package otpkeeper

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/dgrijalva/jwt-go"
)

// DefaultProviderName is assigned to imported accounts that carry
// no provider tag.
const DefaultProviderName = "Default"

// Provider is a service issuing 2FA credentials.
type Provider struct {
	ID      int64
	Name    string
	Website sql.NullString
	DocURL  sql.NullString
	Image   sql.NullString
}

// Account is the persisted metadata of a single enrollment with
// a Provider. The shared secret lives in the SecretStore under TokenID.
type Account struct {
	ID         int64
	Username   string
	TokenID    string
	ProviderID int64
}

// AccountUpdate lists the Account columns to overwrite. Nil fields
// are left untouched.
type AccountUpdate struct {
	Username   *string
	ProviderID *int64
}

// ProviderUpdate lists the Provider columns to overwrite. Nil fields
// are left untouched.
type ProviderUpdate struct {
	Name    *string
	Website *string
	DocURL  *string
	Image   *string
}

// AccountRepository manages Account metadata.
type AccountRepository interface {
	// Create persists a new Account.
	Create(ctx context.Context, username, tokenID string, providerID int64) (*Account, error)
	// ByID retrieves an Account by its ID.
	ByID(ctx context.Context, id int64) (*Account, error)
	// ByProvider retrieves all Accounts of a Provider.
	ByProvider(ctx context.Context, providerID int64) ([]*Account, error)
	// All retrieves every Account.
	All(ctx context.Context) ([]*Account, error)
	// Search matches terms against usernames and provider names and
	// returns one Account per matching Provider.
	Search(ctx context.Context, terms []string) ([]*Account, error)
	// Update overwrites the listed columns of an Account.
	Update(ctx context.Context, id int64, u AccountUpdate) error
	// Remove deletes an Account.
	Remove(ctx context.Context, id int64) error
	// Count returns the total number of Accounts.
	Count(ctx context.Context) (int, error)
}

// ProviderRepository manages Providers.
type ProviderRepository interface {
	// Create persists a new Provider and sets its ID.
	Create(ctx context.Context, provider *Provider) error
	// ByID retrieves a Provider by its ID.
	ByID(ctx context.Context, id int64) (*Provider, error)
	// ByName retrieves a Provider by its name, ignoring case.
	ByName(ctx context.Context, name string) (*Provider, error)
	// All retrieves Providers, optionally only those referenced
	// by at least one Account.
	All(ctx context.Context, onlyUsed bool) ([]*Provider, error)
	// Update overwrites the listed columns of a Provider.
	Update(ctx context.Context, id int64, u ProviderUpdate) error
	// Remove deletes a Provider.
	Remove(ctx context.Context, id int64) error
	// Count returns the total number of Providers.
	Count(ctx context.Context) (int, error)
}

// RepositoryManager exposes the repositories of a single database.
type RepositoryManager interface {
	Account() AccountRepository
	Provider() ProviderRepository
}

// SecretStore wraps the OS secret vault. Every call round-trips to the
// vault, failures are logged and reported as absent values.
type SecretStore interface {
	// Lookup returns the secret stored under a token ID.
	Lookup(tokenID string) (string, bool)
	// Insert stores a secret under a token ID.
	Insert(tokenID, providerName, username, secret string) error
	// Remove deletes the secret stored under a token ID.
	Remove(tokenID string) bool
	// ClearAll deletes every stored secret.
	ClearAll() bool

	// Password returns the stored unlock password hash.
	Password() (string, bool)
	// SetPassword replaces the unlock password and enables locking.
	SetPassword(password string) error
	// HasPassword reports whether an unlock password is stored.
	HasPassword() bool
	// RemovePassword deletes the unlock password and disables locking.
	RemovePassword() bool
	// VerifyPassword compares a candidate with the stored password.
	VerifyPassword(password string) bool
	// IsLockingEnabled reports the stored locking flag.
	IsLockingEnabled() bool
	// SetLockingEnabled stores or clears the locking flag.
	SetLockingEnabled(enabled bool) error
	// CanBeLocked is true when locking is enabled and a password exists.
	CanBeLocked() bool
}

// PasswordService manages the unlock password policy.
type PasswordService interface {
	// Hash hashes a password for storage.
	Hash(password string) ([]byte, error)
	// Validate checks a password against a stored hash.
	Validate(hash, password string) error
	// OKForUser tells us if a password meets minimum requirements.
	OKForUser(password string) error
}

// Token is an unlock session issued after a successful password check.
type Token struct {
	jwt.StandardClaims
}

// TokenService issues and validates unlock sessions.
type TokenService interface {
	// Create creates a new, unsigned unlock token.
	Create(ctx context.Context) (*Token, error)
	// Sign creates a signed JWT token string from a token struct.
	Sign(ctx context.Context, token *Token) (string, error)
	// Validate checks a signed token string and returns the Token.
	Validate(ctx context.Context, signedToken string) (*Token, error)
}

// AccountAPI provides HTTP handlers for account management.
type AccountAPI interface {
	List(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Create(w http.ResponseWriter, r *http.Request) (interface{}, error)
	CreateFromURI(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Update(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Remove(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Search(w http.ResponseWriter, r *http.Request) (interface{}, error)
	QRCode(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Countdown(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Providers(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Import(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Export(w http.ResponseWriter, r *http.Request) (interface{}, error)
}

// LockAPI provides HTTP handlers for the application lock.
type LockAPI interface {
	Unlock(w http.ResponseWriter, r *http.Request) (interface{}, error)
	SetPassword(w http.ResponseWriter, r *http.Request) (interface{}, error)
	RemovePassword(w http.ResponseWriter, r *http.Request) (interface{}, error)
	SetLocking(w http.ResponseWriter, r *http.Request) (interface{}, error)
	Locking(w http.ResponseWriter, r *http.Request) (interface{}, error)
}
