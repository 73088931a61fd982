package database

import (
	"database/sql"
	"fmt"
	"time"
)

type accountRepository struct {
	db *DB
}

var _ AccountRepository = (*accountRepository)(nil)

func NewAccountRepository(db *DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetAccount(provider string) (*Account, error) {
	var account Account
	err := r.db.QueryRow(`
		SELECT provider, access_token, connected_at FROM linked_accounts WHERE provider = ?
	`, provider).Scan(&account.Provider, &account.AccessToken, &account.ConnectedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (r *accountRepository) ListAccounts() ([]Account, error) {
	rows, err := r.db.Query(`SELECT provider, access_token, connected_at FROM linked_accounts ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var account Account
		if err := rows.Scan(&account.Provider, &account.AccessToken, &account.ConnectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func (r *accountRepository) UpsertAccount(provider, accessToken string) error {
	_, err := r.db.Exec(`
		INSERT INTO linked_accounts (provider, access_token, connected_at)
		VALUES (?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			access_token = excluded.access_token,
			connected_at = excluded.connected_at
	`, provider, accessToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (r *accountRepository) DeleteAccount(provider string) error {
	result, err := r.db.Exec(`DELETE FROM linked_accounts WHERE provider = ?`, provider)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
