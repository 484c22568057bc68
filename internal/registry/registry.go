// Package registry owns the live Accounts grouped by Provider and runs
// the countdown keeping every code refreshed on the same boundary.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/otp"
)

// Group is a Provider with its Accounts.
type Group struct {
	Provider *keeper.Provider
	Accounts []*credential.Account
}

// Registry is the authoritative in-memory set of Accounts.
type Registry struct {
	logger   log.Logger
	svc      *credential.Service
	interval time.Duration
	period   int
	clock    func() time.Time

	mu        sync.Mutex
	groups    []*Group
	counter   int
	alive     bool
	running   bool
	stop      chan struct{}
	listeners map[int]func(int)
	nextID    int
}

// Load fills the registry with every Provider that has Accounts. Accounts
// whose secret cannot be resolved are left out.
func (r *Registry) Load(ctx context.Context) error {
	providers, err := r.svc.Providers(ctx, true)
	if err != nil {
		level.Error(r.logger).Log(
			"message", "cannot load providers",
			"error", err,
			"source", "registry.Load",
		)
		return err
	}

	for _, p := range providers {
		accounts, err := r.svc.ByProvider(ctx, p)
		if err != nil {
			level.Error(r.logger).Log(
				"message", "cannot load accounts",
				"error", err,
				"provider_id", p.ID,
				"source", "registry.Load",
			)
			continue
		}
		for _, a := range accounts {
			if a.HasCode() {
				r.Add(p, a)
			}
		}
	}

	return nil
}

// Add inserts an Account in the bucket of its Provider, creating the
// bucket when absent, and starts the countdown if it was stopped.
func (r *Registry) Add(p *keeper.Provider, a *credential.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.alive {
		return
	}

	g := r.group(p.ID)
	if g == nil {
		g = &Group{Provider: p}
		r.groups = append(r.groups, g)
	}
	g.Accounts = append(g.Accounts, a)

	r.start()
}

// Delete removes an Account from its bucket. Empty buckets are dropped
// and the countdown stops once no Account is left.
func (r *Registry) Delete(a *credential.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, g := range r.groups {
		idx := -1
		for j, candidate := range g.Accounts {
			if candidate == a || candidate.ID() == a.ID() {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue
		}

		g.Accounts = append(g.Accounts[:idx], g.Accounts[idx+1:]...)
		if len(g.Accounts) == 0 {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
		}
		break
	}

	if len(r.groups) == 0 {
		r.halt()
	}
}

// Move places an Account in the bucket of its current Provider.
func (r *Registry) Move(a *credential.Account) {
	r.Delete(a)
	r.Add(a.Provider(), a)
}

// Remove deletes an Account from storage and from the registry. The
// Provider is deleted with its last Account.
func (r *Registry) Remove(ctx context.Context, a *credential.Account) error {
	p := a.Provider()

	if err := a.Remove(ctx); err != nil {
		return err
	}
	r.Delete(a)

	if p == nil {
		return nil
	}

	inUse, err := r.svc.ProviderInUse(ctx, p.ID)
	if err != nil {
		return err
	}
	if !inUse {
		if err := r.svc.RemoveProvider(ctx, p.ID); err != nil {
			level.Error(r.logger).Log(
				"message", "cannot remove unused provider",
				"error", err,
				"provider_id", p.ID,
				"source", "registry.Remove",
			)
			return err
		}
	}

	return nil
}

// ByID returns a managed Account.
func (r *Registry) ByID(id int64) (*credential.Account, bool) {
	for _, a := range r.Accounts() {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Search returns the Accounts matching any of the terms, one per
// Provider. Accounts without code are left out.
func (r *Registry) Search(ctx context.Context, terms []string) []*credential.Account {
	accounts, err := r.svc.Search(ctx, terms)
	if err != nil {
		return make([]*credential.Account, 0)
	}

	found := make([]*credential.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.HasCode() {
			found = append(found, a)
		}
	}

	return found
}

// Groups returns a snapshot of the buckets ordered by Provider name.
func (r *Registry) Groups() []Group {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		accounts := make([]*credential.Account, len(g.Accounts))
		copy(accounts, g.Accounts)
		groups = append(groups, Group{Provider: g.Provider, Accounts: accounts})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Provider.Name) < strings.ToLower(groups[j].Provider.Name)
	})

	return groups
}

// Accounts returns every managed Account.
func (r *Registry) Accounts() []*credential.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts()
}

// Count returns the number of managed Accounts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts())
}

// Empty reports whether no Account is managed.
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups) == 0
}

// Counter returns the seconds left before every code expires.
func (r *Registry) Counter() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// Period returns the countdown length in seconds.
func (r *Registry) Period() int {
	return r.period
}

// Running reports whether the countdown ticker is active.
func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// OnCounter registers a listener called with the counter on every tick
// and returns a function removing it.
func (r *Registry) OnCounter(fn func(counter int)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// Tick performs one countdown step. When the counter reaches zero it is
// reset and every Account recomputes its code before Tick returns. The
// counter listeners are then notified.
func (r *Registry) Tick() {
	r.tick(nil)
}

// tick skips steps of a ticker that was stopped while it fired.
func (r *Registry) tick(stop <-chan struct{}) {
	r.mu.Lock()
	if !r.alive || (stop != nil && (!r.running || stop != r.stop)) {
		r.mu.Unlock()
		return
	}

	r.counter--
	expired := r.counter <= 0
	if expired {
		r.counter = r.period
	}
	counter := r.counter

	var accounts []*credential.Account
	if expired {
		accounts = r.accounts()
	}
	listeners := make([]func(int), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	if expired {
		now := r.clock()
		for _, a := range accounts {
			a.Expire(now)
		}
	}

	for _, fn := range listeners {
		fn(counter)
	}
}

// Kill stops the countdown for good. No further broadcasts occur.
func (r *Registry) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alive = false
	r.halt()
}

// Run blocks until the context ends and then kills the registry.
func (r *Registry) Run(ctx context.Context) error {
	<-ctx.Done()
	r.Kill()
	return nil
}

// start must be called with the lock held. The counter is aligned with
// the OTP window of the current time so that expiry matches the codes.
func (r *Registry) start() {
	if r.running || !r.alive {
		return
	}

	r.counter = otp.TimeRemaining(r.clock().Unix(), r.period)
	r.running = true
	r.stop = make(chan struct{})
	go r.loop(r.stop)

	level.Debug(r.logger).Log(
		"message", "countdown started",
		"source", "registry.start",
	)
}

// halt must be called with the lock held.
func (r *Registry) halt() {
	if !r.running {
		return
	}

	close(r.stop)
	r.running = false

	level.Debug(r.logger).Log(
		"message", "countdown stopped",
		"source", "registry.halt",
	)
}

func (r *Registry) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick(stop)
		}
	}
}

// group must be called with the lock held.
func (r *Registry) group(providerID int64) *Group {
	for _, g := range r.groups {
		if g.Provider.ID == providerID {
			return g
		}
	}
	return nil
}

// accounts must be called with the lock held.
func (r *Registry) accounts() []*credential.Account {
	var accounts []*credential.Account
	for _, g := range r.groups {
		accounts = append(accounts, g.Accounts...)
	}
	return accounts
}
