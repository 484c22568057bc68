package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	keeper "github.com/fmitra/otpkeeper"
)

// ProviderRepository is an implementation of keeper.ProviderRepository interface.
type ProviderRepository struct {
	client *Client
}

// Create persists a new Provider and sets its ID.
func (r *ProviderRepository) Create(ctx context.Context, provider *keeper.Provider) error {
	row := r.client.queryRowContext(
		ctx,
		r.client.providerQ["insert"],
		provider.Name,
		provider.Website,
		provider.DocURL,
		provider.Image,
	)
	if err := row.Scan(&provider.ID); err != nil {
		return fmt.Errorf("failed to insert provider: %w", err)
	}

	return nil
}

// ByID retrieves a Provider with a matching ID.
func (r *ProviderRepository) ByID(ctx context.Context, id int64) (*keeper.Provider, error) {
	return r.get(ctx, "byID", id)
}

// ByName retrieves a Provider by name, ignoring case.
func (r *ProviderRepository) ByName(ctx context.Context, name string) (*keeper.Provider, error) {
	return r.get(ctx, "byName", name)
}

// All retrieves Providers ordered by name. With onlyUsed set, Providers
// without Accounts are left out.
func (r *ProviderRepository) All(ctx context.Context, onlyUsed bool) ([]*keeper.Provider, error) {
	query := r.client.providerQ["all"]
	if onlyUsed {
		query = r.client.providerQ["allUsed"]
	}

	rows, err := r.client.queryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := make([]*keeper.Provider, 0)
	for rows.Next() {
		provider := keeper.Provider{}
		err := rows.Scan(
			&provider.ID, &provider.Name, &provider.Website, &provider.DocURL, &provider.Image,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, &provider)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return providers, nil
}

// Update overwrites the listed columns of a Provider.
func (r *ProviderRepository) Update(ctx context.Context, id int64, u keeper.ProviderUpdate) error {
	var (
		columns []string
		args    []interface{}
	)
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		columns = append(columns, column+"=?")
		args = append(args, *value)
	}
	set("name", u.Name)
	set("website", u.Website)
	set("doc_url", u.DocURL)
	set("image", u.Image)

	if len(columns) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(r.client.providerQ["update"], strings.Join(columns, ", "))
	res, err := r.client.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute update: %w", err)
	}

	return checkAffected(res, "provider")
}

// Remove deletes a Provider.
func (r *ProviderRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.client.execContext(ctx, r.client.providerQ["delete"], id)
	if err != nil {
		return fmt.Errorf("failed to execute delete: %w", err)
	}

	return checkAffected(res, "provider")
}

// Count returns the total number of Providers.
func (r *ProviderRepository) Count(ctx context.Context) (int, error) {
	var count int
	row := r.client.queryRowContext(ctx, r.client.providerQ["count"])
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *ProviderRepository) get(ctx context.Context, queryKey string, values ...interface{}) (*keeper.Provider, error) {
	provider := keeper.Provider{}
	row := r.client.queryRowContext(ctx, r.client.providerQ[queryKey], values...)
	err := row.Scan(
		&provider.ID, &provider.Name, &provider.Website, &provider.DocURL, &provider.Image,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, keeper.ErrNotFound("provider does not exist")
	}
	if err != nil {
		return nil, err
	}

	return &provider, nil
}
