package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/otp"
)

// Observer receives Account events.
type Observer interface {
	// OnCode is called with the new code after the Account expires.
	OnCode(code string)
	// OnRemoved is called once the Account is removed.
	OnRemoved()
}

// ObserverFuncs adapts functions to an Observer. Nil functions are
// skipped.
type ObserverFuncs struct {
	CodeFn    func(code string)
	RemovedFn func()
}

// OnCode calls CodeFn.
func (o ObserverFuncs) OnCode(code string) {
	if o.CodeFn != nil {
		o.CodeFn(code)
	}
}

// OnRemoved calls RemovedFn.
func (o ObserverFuncs) OnRemoved() {
	if o.RemovedFn != nil {
		o.RemovedFn()
	}
}

// Account is a live credential. It joins the persisted metadata with an
// OTP session bound to the secret resolved from the SecretStore. An
// Account without a session never produces a code.
type Account struct {
	svc *Service

	mu        sync.RWMutex
	id        int64
	username  string
	tokenID   string
	provider  *keeper.Provider
	session   *otp.Session
	observers map[int]Observer
	nextObs   int
}

// ID returns the database ID of the Account.
func (a *Account) ID() int64 {
	return a.id
}

// TokenID returns the SecretStore key of the Account secret.
func (a *Account) TokenID() string {
	return a.tokenID
}

// Username returns the display label of the Account.
func (a *Account) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.username
}

// Provider returns the Provider the Account belongs to.
func (a *Account) Provider() *keeper.Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.provider
}

// HasCode reports whether the Account secret was resolved.
func (a *Account) HasCode() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil
}

// CurrentCode returns the most recently computed code. It is false
// when the secret could not be resolved.
func (a *Account) CurrentCode() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return "", false
	}
	return a.session.Code(), true
}

// Counter returns the TOTP counter of the current code.
func (a *Account) Counter() (uint64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return 0, false
	}
	return a.session.Counter(), true
}

// Subscribe registers an Observer and returns a function removing it.
func (a *Account) Subscribe(o Observer) func() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.observers == nil {
		a.observers = make(map[int]Observer)
	}
	id := a.nextObs
	a.nextObs++
	a.observers[id] = o

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.observers, id)
	}
}

// Expire recomputes the code for now and notifies observers. Accounts
// without a code are left untouched.
func (a *Account) Expire(now time.Time) {
	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return
	}
	code := a.session.Update(now)
	observers := a.snapshotObservers()
	a.mu.Unlock()

	for _, o := range observers {
		o.OnCode(code)
	}
}

// SetProvider replaces the in-memory Provider without persisting it.
func (a *Account) SetProvider(p *keeper.Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.provider = p
}

// SetProviderByID loads a Provider and assigns it in memory.
func (a *Account) SetProviderByID(ctx context.Context, providerID int64) error {
	p, err := a.svc.ProviderByID(ctx, providerID)
	if err != nil {
		return err
	}

	a.SetProvider(p)
	return nil
}

// Update rewrites the username and Provider. The secret is not touched.
func (a *Account) Update(ctx context.Context, username string, p *keeper.Provider) error {
	err := a.svc.repoMngr.Account().Update(ctx, a.id, keeper.AccountUpdate{
		Username:   &username,
		ProviderID: &p.ID,
	})
	if err != nil {
		level.Error(a.svc.logger).Log(
			"message", "cannot update account",
			"error", err,
			"account_id", a.id,
			"source", "credential.Account.Update",
		)
		return err
	}

	a.mu.Lock()
	a.username = username
	a.provider = p
	a.mu.Unlock()

	return nil
}

// Remove deletes the metadata row and then the secret, and notifies
// observers. A secret that cannot be removed is logged and left behind.
func (a *Account) Remove(ctx context.Context) error {
	if err := a.svc.repoMngr.Account().Remove(ctx, a.id); err != nil {
		level.Error(a.svc.logger).Log(
			"message", "cannot remove account",
			"error", err,
			"account_id", a.id,
			"source", "credential.Account.Remove",
		)
		return err
	}

	if !a.svc.store.Remove(a.tokenID) {
		level.Warn(a.svc.logger).Log(
			"message", "account secret not removed",
			"account_id", a.id,
			"source", "credential.Account.Remove",
		)
	}

	a.mu.Lock()
	a.session = nil
	observers := a.snapshotObservers()
	a.mu.Unlock()

	level.Debug(a.svc.logger).Log(
		"message", fmt.Sprintf("account %s removed", a.Username()),
		"account_id", a.id,
		"source", "credential.Account.Remove",
	)

	for _, o := range observers {
		o.OnRemoved()
	}

	return nil
}

// URI returns the otpauth URI of the Account. It is false when the
// secret cannot be resolved.
func (a *Account) URI() (string, bool) {
	secret, ok := a.svc.store.Lookup(a.tokenID)
	if !ok {
		return "", false
	}

	return otp.KeyURI(a.providerName(), a.Username(), secret, a.svc.otpOpts...), true
}

// Backup returns the interchange Entry of the Account. It is false
// when the secret cannot be resolved.
func (a *Account) Backup() (Entry, bool) {
	secret, ok := a.svc.store.Lookup(a.tokenID)
	if !ok {
		return Entry{}, false
	}

	opts := otp.NewOptions(a.svc.otpOpts...)
	return Entry{
		Secret:    secret,
		Label:     a.Username(),
		Period:    opts.Period,
		Digits:    opts.Digits,
		Type:      entryType,
		Algorithm: opts.Algorithm.String(),
		Thumbnail: keeper.DefaultProviderName,
		LastUsed:  0,
		Tags:      []string{a.providerName()},
	}, true
}

func (a *Account) providerName() string {
	p := a.Provider()
	if p == nil {
		return keeper.DefaultProviderName
	}
	return p.Name
}

// snapshotObservers must be called with the lock held.
func (a *Account) snapshotObservers() []Observer {
	observers := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		observers = append(observers, o)
	}
	return observers
}
