// Package accountapi provides an HTTP API for Account management.
package accountapi

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	keeper "github.com/fmitra/otpkeeper"
	"github.com/fmitra/otpkeeper/internal/backup"
	"github.com/fmitra/otpkeeper/internal/credential"
	"github.com/fmitra/otpkeeper/internal/httpapi"
	"github.com/fmitra/otpkeeper/internal/qrcode"
	"github.com/fmitra/otpkeeper/internal/registry"
)

type service struct {
	logger      log.Logger
	credentials *credential.Service
	registry    *registry.Registry
	backup      *backup.Backup
	qrSize      int
}

// List returns every managed Account grouped by Provider along with
// the shared countdown. Stored Accounts whose secret is missing are
// listed without a code.
func (s *service) List(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	stored, err := s.credentials.All(r.Context())
	if err != nil {
		return nil, err
	}

	codeless := make([]*credential.Account, 0)
	for _, a := range stored {
		if !a.HasCode() {
			codeless = append(codeless, a)
		}
	}

	return newListResponse(s.registry, codeless), nil
}

// Create stores a new Account from a username, provider name and secret.
// The Provider is created when it does not exist yet.
func (s *service) Create(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	req, err := decodeAccountRequest(r)
	if err != nil {
		return nil, err
	}

	return s.create(r.Context(), req.Username, req.Provider, req.Secret)
}

// CreateFromURI stores a new Account from the content of a scanned
// otpauth:// QR code.
func (s *service) CreateFromURI(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	payload, err := decodeURIRequest(r)
	if err != nil {
		return nil, err
	}

	return s.create(r.Context(), payload.Username, payload.Provider, payload.Secret)
}

// Update renames an Account or moves it to another Provider.
func (s *service) Update(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	ctx := r.Context()

	a, err := s.account(r)
	if err != nil {
		return nil, err
	}

	req, err := decodeUpdateRequest(r)
	if err != nil {
		return nil, err
	}

	p, err := s.credentials.ProviderOrCreate(ctx, req.Provider)
	if err != nil {
		return nil, err
	}

	if err = a.Update(ctx, req.Username, p); err != nil {
		return nil, err
	}
	if a.HasCode() {
		s.registry.Move(a)
	}

	return newAccountResponse(a), nil
}

// Remove deletes an Account and its secret. The Provider is deleted
// along with its last Account.
func (s *service) Remove(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	a, err := s.account(r)
	if err != nil {
		return nil, err
	}

	if err = s.registry.Remove(r.Context(), a); err != nil {
		return nil, err
	}

	return nil, nil
}

// Search returns one Account per Provider matching any of the
// whitespace separated terms of the q parameter.
func (s *service) Search(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	terms := searchTerms(r)
	return newAccountsResponse(s.registry.Search(r.Context(), terms)), nil
}

// QRCode renders the otpauth URI of an Account as a PNG image.
func (s *service) QRCode(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	a, err := s.account(r)
	if err != nil {
		return nil, err
	}

	uri, ok := a.URI()
	if !ok {
		return nil, keeper.ErrNotFound("account secret does not exist")
	}

	png, err := qrcode.Generate(uri, s.qrSize)
	if err != nil {
		return nil, err
	}

	return &httpapi.Blob{ContentType: "image/png", Body: png}, nil
}

// Countdown returns the seconds left before every code refreshes.
func (s *service) Countdown(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return &CountdownResponse{
		Counter: s.registry.Counter(),
		Period:  s.registry.Period(),
		Running: s.registry.Running(),
	}, nil
}

// Providers returns the Provider catalogue, optionally restricted to
// Providers holding at least one Account.
func (s *service) Providers(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	providers, err := s.credentials.Providers(r.Context(), onlyUsed(r))
	if err != nil {
		return nil, err
	}

	resp := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, newProviderResponse(p))
	}
	return resp, nil
}

// Import reads a backup file from the request body.
func (s *service) Import(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	if r.Body == nil {
		return nil, keeper.ErrBadRequest("no request body received")
	}

	imported, err := s.backup.Import(r.Context(), r.Body)
	if err != nil {
		return nil, err
	}

	level.Info(s.logger).Log(
		"message", "backup imported",
		"imported", imported,
		"source", "accountapi.Import",
	)

	return &ImportResponse{Imported: imported}, nil
}

// Export writes every Account with a secret as a backup file.
func (s *service) Export(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var buf bytes.Buffer
	if err := s.backup.Export(&buf); err != nil {
		return nil, err
	}

	return &httpapi.Blob{ContentType: "application/json", Body: buf.Bytes()}, nil
}

func (s *service) create(ctx context.Context, username, providerName, secret string) (interface{}, error) {
	p, err := s.credentials.ProviderOrCreate(ctx, providerName)
	if err != nil {
		return nil, err
	}

	a, err := s.credentials.Create(ctx, username, secret, p)
	if err != nil {
		return nil, err
	}
	s.registry.Add(p, a)

	return newAccountResponse(a), nil
}

func (s *service) account(r *http.Request) (*credential.Account, error) {
	id, err := accountID(r)
	if err != nil {
		return nil, err
	}

	if a, ok := s.registry.ByID(id); ok {
		return a, nil
	}

	// Accounts without a secret are not managed by the registry.
	return s.credentials.ByID(r.Context(), id)
}
