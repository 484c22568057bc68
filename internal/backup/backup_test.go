package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/registry"
	"github.com/fmitra/otpkeeper/internal/secretstore"
	"github.com/fmitra/otpkeeper/internal/sqlite"
	"github.com/fmitra/otpkeeper/internal/test"
)

func newTestBackup(t *testing.T) (*Backup, *registry.Registry) {
	db, err := test.NewSQLiteDB()
	if err != nil {
		t.Fatal("failed to create test database:", err)
	}
	t.Cleanup(func() { db.DropDB() })

	svc := credential.NewService(
		credential.WithRepoManager(sqlite.TestClient(db.DB)),
		credential.WithSecretStore(secretstore.NewStore()),
	)
	r := registry.NewRegistry(
		registry.WithService(svc),
		registry.WithInterval(time.Hour),
	)
	t.Cleanup(r.Kill)

	return NewBackup(svc, r, nil), r
}

func TestBackup_Import(t *testing.T) {
	b, r := newTestBackup(t)

	input := `[
		{"secret": "JBSWY3DPEHPK3PXP", "label": "alice", "period": 30, "digits": 6,
		 "type": "OTP", "algorithm": "SHA1", "thumbnail": "Default", "last_used": 0,
		 "tags": ["GitHub"]},
		{"secret": "GEZDGNBVGY3TQOJQ", "label": "bob", "tags": []},
		{"secret": "not base32!", "label": "broken", "tags": ["GitHub"]}
	]`

	imported, err := b.Import(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatal("failed to import backup:", err)
	}
	if imported != 2 {
		t.Errorf("incorrect import count, want 2 got %v", imported)
	}

	var names []string
	for _, g := range r.Groups() {
		names = append(names, g.Provider.Name)
	}
	want := []string{keeper.DefaultProviderName, "GitHub"}
	if !cmp.Equal(names, want) {
		t.Error(cmp.Diff(names, want))
	}
}

func TestBackup_ImportRejectsMalformedFile(t *testing.T) {
	b, _ := newTestBackup(t)

	_, err := b.Import(context.Background(), strings.NewReader(`{"secret": "x"}`))
	if keeper.ErrorCode(err) != keeper.EBadRequest {
		t.Errorf("incorrect error code, want %s got %s", keeper.EBadRequest, keeper.ErrorCode(err))
	}
}

func TestBackup_ExportRoundTrip(t *testing.T) {
	b, _ := newTestBackup(t)

	input := `[{"secret": "JBSWY3DPEHPK3PXP", "label": "alice", "tags": ["GitHub"]}]`
	if _, err := b.Import(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatal("failed to import backup:", err)
	}

	var buf bytes.Buffer
	if err := b.Export(&buf); err != nil {
		t.Fatal("failed to export backup:", err)
	}

	var entries []credential.Entry
	if err := json.NewDecoder(&buf).Decode(&entries); err != nil {
		t.Fatal("failed to decode export:", err)
	}
	want := []credential.Entry{{
		Secret:    "JBSWY3DPEHPK3PXP",
		Label:     "alice",
		Period:    30,
		Digits:    6,
		Type:      "OTP",
		Algorithm: "SHA1",
		Thumbnail: "Default",
		Tags:      []string{"GitHub"},
	}}
	if !cmp.Equal(entries, want) {
		t.Error(cmp.Diff(entries, want))
	}
}
