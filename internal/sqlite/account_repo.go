package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	keeper "github.com/fmitra/otpkeeper"
)

// AccountRepository is an implementation of keeper.AccountRepository interface.
type AccountRepository struct {
	client *Client
}

// Create persists a new Account to storage.
func (r *AccountRepository) Create(ctx context.Context, username, tokenID string, providerID int64) (*keeper.Account, error) {
	account := keeper.Account{
		Username:   username,
		TokenID:    tokenID,
		ProviderID: providerID,
	}

	row := r.client.queryRowContext(
		ctx,
		r.client.accountQ["insert"],
		account.Username,
		account.TokenID,
		account.ProviderID,
	)
	if err := row.Scan(&account.ID); err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	return &account, nil
}

// ByID retrieves an Account with a matching ID.
func (r *AccountRepository) ByID(ctx context.Context, id int64) (*keeper.Account, error) {
	account := keeper.Account{}
	row := r.client.queryRowContext(ctx, r.client.accountQ["byID"], id)
	err := row.Scan(&account.ID, &account.Username, &account.TokenID, &account.ProviderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, keeper.ErrNotFound("account does not exist")
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// ByProvider retrieves all Accounts of a Provider.
func (r *AccountRepository) ByProvider(ctx context.Context, providerID int64) ([]*keeper.Account, error) {
	return r.list(ctx, r.client.accountQ["byProvider"], providerID)
}

// All retrieves every Account.
func (r *AccountRepository) All(ctx context.Context) ([]*keeper.Account, error) {
	return r.list(ctx, r.client.accountQ["all"])
}

// Search returns one Account per Provider whose name, or the username
// of one of its Accounts, contains any of the terms. Results are
// ordered by username.
func (r *AccountRepository) Search(ctx context.Context, terms []string) ([]*keeper.Account, error) {
	var (
		filters []string
		args    []interface{}
	)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		pattern := "%" + escapeLike(term) + "%"
		filters = append(filters, r.client.accountQ["searchTerm"])
		args = append(args, pattern, pattern)
	}

	if len(filters) == 0 {
		return make([]*keeper.Account, 0), nil
	}

	query := fmt.Sprintf(r.client.accountQ["search"], strings.Join(filters, " OR "))
	return r.list(ctx, query, args...)
}

// Update overwrites the listed columns of an Account.
func (r *AccountRepository) Update(ctx context.Context, id int64, u keeper.AccountUpdate) error {
	var (
		columns []string
		args    []interface{}
	)
	if u.Username != nil {
		columns = append(columns, "username=?")
		args = append(args, *u.Username)
	}
	if u.ProviderID != nil {
		columns = append(columns, "provider=?")
		args = append(args, *u.ProviderID)
	}
	if len(columns) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(r.client.accountQ["update"], strings.Join(columns, ", "))
	res, err := r.client.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute update: %w", err)
	}

	return checkAffected(res, "account")
}

// Remove deletes an Account.
func (r *AccountRepository) Remove(ctx context.Context, id int64) error {
	res, err := r.client.execContext(ctx, r.client.accountQ["delete"], id)
	if err != nil {
		return fmt.Errorf("failed to execute delete: %w", err)
	}

	return checkAffected(res, "account")
}

// Count returns the total number of Accounts.
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	row := r.client.queryRowContext(ctx, r.client.accountQ["count"])
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...interface{}) ([]*keeper.Account, error) {
	rows, err := r.client.queryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*keeper.Account, 0)
	for rows.Next() {
		account := keeper.Account{}
		err := rows.Scan(&account.ID, &account.Username, &account.TokenID, &account.ProviderID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// escapeLike escapes LIKE wildcards so terms match literally.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

func checkAffected(res sql.Result, entity string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return keeper.ErrNotFound(fmt.Sprintf("%s does not exist", entity))
	}
	if affected != 1 {
		return fmt.Errorf("wrong number of %ss affected: %d", entity, affected)
	}

	return nil
}
