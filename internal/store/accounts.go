package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateAccount inserts a new account. The parent, if any, is debited by
// the account's balance in the same transaction.
// Returns ErrAccountExists for a duplicate id.
func (s *Store) CreateAccount(ctx context.Context, id, parent string, balance units.Balance) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("create account: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if parent != "" {
		if err := adjustBalance(ctx, tx, parent, balance, false); err != nil {
			return Account{}, fmt.Errorf("create account %s: fund from %s: %w", id, parent, err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, parent, balance)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, parent, balance.String())
	if err != nil {
		return Account{}, fmt.Errorf("create account %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return Account{}, fmt.Errorf("create account %s: %w", id, err)
	}
	if n == 0 {
		return Account{}, fmt.Errorf("create account %s: %w", id, ErrAccountExists)
	}

	acc, err := getAccount(ctx, tx, id)
	if err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("create account %s: commit: %w", id, err)
	}
	return acc, nil
}

// GetAccount returns the account with the given id.
// Returns ErrAccountNotFound if it does not exist.
func (s *Store) GetAccount(ctx context.Context, id string) (Account, error) {
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, q querier, id string) (Account, error) {
	row := q.QueryRowContext(ctx, `
		SELECT seq, id, parent, balance, code_hash, nonce
		FROM accounts
		WHERE id = ?
	`, id)

	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("read account %s: %w", id, err)
	}
	return acc, nil
}

// ListAccounts returns every account in creation order.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, parent, balance, code_hash, nonce
		FROM accounts
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Transfer moves amount from one account to another atomically.
func (s *Store) Transfer(ctx context.Context, from, to string, amount units.Balance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := adjustBalance(ctx, tx, from, amount, false); err != nil {
		return fmt.Errorf("transfer from %s: %w", from, err)
	}
	if err := adjustBalance(ctx, tx, to, amount, true); err != nil {
		return fmt.Errorf("transfer to %s: %w", to, err)
	}
	return tx.Commit()
}

// adjustBalance credits or debits an account inside a transaction.
func adjustBalance(ctx context.Context, q querier, id string, amount units.Balance, credit bool) error {
	acc, err := getAccount(ctx, q, id)
	if err != nil {
		return err
	}

	var next units.Balance
	if credit {
		next, err = acc.Balance.Add(amount)
	} else {
		next, err = acc.Balance.Sub(amount)
		if errors.Is(err, units.ErrUnderflow) {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, id, acc.Balance, amount)
		}
	}
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, next.String(), id)
	return err
}

// SetCode stores code under its hash, attaches it to the account and
// seeds the account's storage with initial values. Existing keys keep
// their values, so redeploying does not reset state.
func (s *Store) SetCode(ctx context.Context, id string, code []byte, hash string, initial ir.Object) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set code: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := getAccount(ctx, tx, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO code (hash, code) VALUES (?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, code); err != nil {
		return fmt.Errorf("set code %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET code_hash = ? WHERE id = ?`, hash, id); err != nil {
		return fmt.Errorf("set code %s: %w", id, err)
	}

	for _, key := range initial.SortedKeys() {
		value, err := marshalValue(initial[key])
		if err != nil {
			return fmt.Errorf("set code %s: storage %q: %w", id, key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO storage (account, key, value) VALUES (?, ?, ?)
			ON CONFLICT(account, key) DO NOTHING
		`, id, key, value); err != nil {
			return fmt.Errorf("set code %s: storage %q: %w", id, key, err)
		}
	}

	return tx.Commit()
}

// GetCode returns the code stored under hash.
func (s *Store) GetCode(ctx context.Context, hash string) ([]byte, error) {
	var code []byte
	err := s.db.QueryRowContext(ctx, `SELECT code FROM code WHERE hash = ?`, hash).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("code %s: %w", hash, ErrCodeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read code %s: %w", hash, err)
	}
	return code, nil
}

// ReadStorage returns the full storage of an account. An account without
// storage yields an empty object.
func (s *Store) ReadStorage(ctx context.Context, id string) (ir.Object, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM storage
		WHERE account = ?
		ORDER BY key COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query storage %s: %w", id, err)
	}
	defer rows.Close()

	obj := ir.Object{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan storage %s: %w", id, err)
		}
		v, err := unmarshalValue(value)
		if err != nil {
			return nil, fmt.Errorf("storage %s %q: %w", id, key, err)
		}
		obj[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate storage %s: %w", id, err)
	}
	return obj, nil
}

// WriteStorage upserts storage keys of an account.
func (s *Store) WriteStorage(ctx context.Context, id string, writes ir.Object) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write storage: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeStorage(ctx, tx, id, writes); err != nil {
		return err
	}
	return tx.Commit()
}

func writeStorage(ctx context.Context, q querier, id string, writes ir.Object) error {
	for _, key := range writes.SortedKeys() {
		value, err := marshalValue(writes[key])
		if err != nil {
			return fmt.Errorf("write storage %s %q: %w", id, key, err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO storage (account, key, value) VALUES (?, ?, ?)
			ON CONFLICT(account, key) DO UPDATE SET value = excluded.value
		`, id, key, value); err != nil {
			return fmt.Errorf("write storage %s %q: %w", id, key, err)
		}
	}
	return nil
}

// StorageUsage returns the number of bytes of keys and values stored by an
// account.
func (s *Store) StorageUsage(ctx context.Context, id string) (uint64, error) {
	var usage int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0)
		FROM storage
		WHERE account = ?
	`, id).Scan(&usage)
	if err != nil {
		return 0, fmt.Errorf("storage usage %s: %w", id, err)
	}
	return uint64(usage), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (Account, error) {
	var acc Account
	var balance string
	if err := row.Scan(&acc.Seq, &acc.ID, &acc.Parent, &balance, &acc.CodeHash, &acc.Nonce); err != nil {
		return Account{}, err
	}
	b, err := units.ParseBalance(balance)
	if err != nil {
		return Account{}, fmt.Errorf("account %s balance: %w", acc.ID, err)
	}
	acc.Balance = b
	return acc, nil
}
