package credential

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/crypto"
	"github.com/fmitra/otpkeeper/internal/otp"
	"github.com/fmitra/otpkeeper/internal/secretstore"
	"github.com/fmitra/otpkeeper/internal/sqlite"
	"github.com/fmitra/otpkeeper/internal/test"
)

const testSecret = "JBSWY3DPEHPK3PXP"

var testNow = time.Unix(1600000020, 0)

func newTestService(t *testing.T) (*Service, *secretstore.Store) {
	db, err := test.NewSQLiteDB()
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	t.Cleanup(func() { db.DropDB() })

	store := secretstore.NewStore()
	svc := NewService(
		WithRepoManager(sqlite.TestClient(db.DB)),
		WithSecretStore(store),
		WithClock(func() time.Time { return testNow }),
	)
	return svc, store
}

func TestService_CreateAndLoad(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}

	account, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	code, ok := account.CurrentCode()
	if !ok {
		t.Fatal("expected account to have a code")
	}
	want, err := otp.GenerateTOTP(testSecret, testNow.Unix())
	if err != nil {
		t.Fatal(err)
	}
	if code != want {
		t.Errorf("incorrect code, want %s got %s", want, code)
	}
	if account.TokenID() != crypto.TokenID(testSecret) {
		t.Errorf("incorrect token ID, want %s got %s", crypto.TokenID(testSecret), account.TokenID())
	}

	loaded, err := svc.ByID(ctx, account.ID())
	if err != nil {
		t.Fatal("failed to load account:", err)
	}
	secret, ok := store.Lookup(loaded.TokenID())
	if !ok || secret != testSecret {
		t.Errorf("incorrect secret, want %s got %s", testSecret, secret)
	}
	if loaded.Provider().Name != "GitHub" {
		t.Errorf("incorrect provider, want GitHub got %s", loaded.Provider().Name)
	}
}

func TestService_RemoveNotifiesAndClearsSecret(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	account, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	removed := 0
	account.Subscribe(ObserverFuncs{RemovedFn: func() { removed++ }})

	if err = account.Remove(ctx); err != nil {
		t.Fatal("failed to remove account:", err)
	}
	if removed != 1 {
		t.Errorf("incorrect removal notifications, want 1 got %v", removed)
	}
	if _, ok := store.Lookup(account.TokenID()); ok {
		t.Error("expected secret to be removed")
	}

	accounts, err := svc.Search(ctx, []string{"alice"})
	if err != nil {
		t.Fatal("search failed:", err)
	}
	if len(accounts) != 0 {
		t.Errorf("expected no search results, got %v", len(accounts))
	}
}

func TestService_MissingSecretHasNoCode(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	account, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	store.ClearAll()

	loaded, err := svc.ByID(ctx, account.ID())
	if err != nil {
		t.Fatal("failed to load account:", err)
	}
	if loaded.HasCode() {
		t.Error("expected account without secret to have no code")
	}
	if _, ok := loaded.CurrentCode(); ok {
		t.Error("expected no current code")
	}
	if _, ok := loaded.Backup(); ok {
		t.Error("expected no backup entry")
	}

	notified := false
	loaded.Subscribe(ObserverFuncs{CodeFn: func(string) { notified = true }})
	loaded.Expire(testNow.Add(time.Minute))
	if notified {
		t.Error("expected account without code to ignore expiry")
	}
}

func TestService_AllIncludesAccountsWithoutSecret(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	alice, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}
	if _, err = svc.Create(ctx, "bob", "GEZDGNBVGY3TQOJQ", p); err != nil {
		t.Fatal("failed to create account:", err)
	}

	store.Remove(alice.TokenID())

	accounts, err := svc.All(ctx)
	if err != nil {
		t.Fatal("failed to load accounts:", err)
	}

	got := make(map[string]bool)
	for _, a := range accounts {
		got[a.Username()] = a.HasCode()
		if a.Provider() == nil || a.Provider().Name != "GitHub" {
			t.Errorf("incorrect provider for %s", a.Username())
		}
	}
	want := map[string]bool{"alice": false, "bob": true}
	if !cmp.Equal(got, want) {
		t.Error(cmp.Diff(got, want))
	}
}

func TestAccount_Expire(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	account, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	var codes []string
	unsubscribe := account.Subscribe(ObserverFuncs{CodeFn: func(code string) {
		codes = append(codes, code)
	}})

	next := testNow.Add(30 * time.Second)
	account.Expire(next)

	want, err := otp.GenerateTOTP(testSecret, next.Unix())
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(codes, []string{want}) {
		t.Error(cmp.Diff(codes, []string{want}))
	}

	unsubscribe()
	account.Expire(next.Add(30 * time.Second))
	if len(codes) != 1 {
		t.Errorf("expected no notification after unsubscribe, got %v", len(codes))
	}
}

func TestService_CreateFromBackup(t *testing.T) {
	tt := []struct {
		name     string
		entry    Entry
		provider string
	}{
		{
			name:     "Provider from first tag",
			entry:    Entry{Secret: testSecret, Label: "alice", Tags: []string{"GitLab", "Work"}},
			provider: "GitLab",
		},
		{
			name:     "Empty tags",
			entry:    Entry{Secret: testSecret, Label: "alice", Tags: []string{}},
			provider: keeper.DefaultProviderName,
		},
		{
			name:     "Missing tags",
			entry:    Entry{Secret: testSecret, Label: "alice"},
			provider: keeper.DefaultProviderName,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()

			account, err := svc.CreateFromBackup(ctx, tc.entry)
			if err != nil {
				t.Fatal("failed to import account:", err)
			}
			if account.Provider().Name != tc.provider {
				t.Errorf("incorrect provider, want %s got %s", tc.provider, account.Provider().Name)
			}
			if account.Username() != "alice" {
				t.Errorf("incorrect username, want alice got %s", account.Username())
			}
		})
	}
}

func TestAccount_Backup(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	account, err := svc.Create(ctx, "alice", testSecret, p)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	entry, ok := account.Backup()
	if !ok {
		t.Fatal("expected backup entry")
	}
	want := Entry{
		Secret:    testSecret,
		Label:     "alice",
		Period:    30,
		Digits:    6,
		Type:      "OTP",
		Algorithm: "SHA1",
		Thumbnail: "Default",
		LastUsed:  0,
		Tags:      []string{"GitHub"},
	}
	if !cmp.Equal(entry, want) {
		t.Error(cmp.Diff(entry, want))
	}
}

func TestAccount_UpdateAndSetProvider(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	github, err := svc.ProviderOrCreate(ctx, "GitHub")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	gitlab, err := svc.ProviderOrCreate(ctx, "GitLab")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}
	account, err := svc.Create(ctx, "alice", testSecret, github)
	if err != nil {
		t.Fatal("failed to create account:", err)
	}

	if err = account.Update(ctx, "alice@example.com", gitlab); err != nil {
		t.Fatal("failed to update account:", err)
	}

	loaded, err := svc.ByID(ctx, account.ID())
	if err != nil {
		t.Fatal("failed to load account:", err)
	}
	if loaded.Username() != "alice@example.com" {
		t.Errorf("incorrect username, want alice@example.com got %s", loaded.Username())
	}
	if loaded.Provider().ID != gitlab.ID {
		t.Errorf("incorrect provider, want %v got %v", gitlab.ID, loaded.Provider().ID)
	}

	if err = loaded.SetProviderByID(ctx, github.ID); err != nil {
		t.Fatal("failed to set provider:", err)
	}
	if loaded.Provider().Name != "GitHub" {
		t.Errorf("incorrect provider, want GitHub got %s", loaded.Provider().Name)
	}

	err = loaded.SetProviderByID(ctx, 999)
	if keeper.ErrorCode(err) != keeper.ENotFound {
		t.Errorf("incorrect error code, want %s got %s", keeper.ENotFound, keeper.ErrorCode(err))
	}
}

func TestService_ProviderOrCreateIgnoresCase(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProvider(ctx, "GitHub", "https://github.com", "", "")
	if err != nil {
		t.Fatal("failed to create provider:", err)
	}

	same, err := svc.ProviderOrCreate(ctx, "github")
	if err != nil {
		t.Fatal("failed to find provider:", err)
	}
	if same.ID != p.ID {
		t.Errorf("incorrect provider, want %v got %v", p.ID, same.ID)
	}

	image := "/tmp/github.png"
	updated, err := svc.UpdateProvider(ctx, p.ID, keeper.ProviderUpdate{Image: &image})
	if err != nil {
		t.Fatal("failed to update provider:", err)
	}
	if updated.Image.String != image || updated.Website.String != "https://github.com" {
		t.Errorf("incorrect provider after partial update: %+v", updated)
	}
}
