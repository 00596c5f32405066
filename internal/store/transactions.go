package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chainharness/internal/units"
)

// CommitCall applies one executed call atomically: the signer's nonce is
// bumped and gas cost debited; on success the deposit moves from signer to
// receiver and the writes land in the receiver's storage; the transaction
// row is always recorded.
//
// If the signer cannot cover gas plus deposit nothing is written and
// ErrInsufficientBalance is returned.
func (s *Store) CommitCall(ctx context.Context, c CallCommit) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("commit call: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	t := c.Tx
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET nonce = ? WHERE id = ?`, t.Nonce, t.Signer); err != nil {
		return Transaction{}, fmt.Errorf("commit call: nonce: %w", err)
	}

	if !c.GasCost.IsZero() {
		if err := adjustBalance(ctx, tx, t.Signer, c.GasCost, false); err != nil {
			return Transaction{}, fmt.Errorf("commit call: gas: %w", err)
		}
	}

	if t.Success {
		if !t.Deposit.IsZero() {
			if err := adjustBalance(ctx, tx, t.Signer, t.Deposit, false); err != nil {
				return Transaction{}, fmt.Errorf("commit call: deposit: %w", err)
			}
			if err := adjustBalance(ctx, tx, t.Receiver, t.Deposit, true); err != nil {
				return Transaction{}, fmt.Errorf("commit call: deposit: %w", err)
			}
		}
		if err := writeStorage(ctx, tx, t.Receiver, c.Writes); err != nil {
			return Transaction{}, fmt.Errorf("commit call: %w", err)
		}
	}

	args, err := marshalArgs(t.Args)
	if err != nil {
		return Transaction{}, fmt.Errorf("commit call: %w", err)
	}
	result, err := marshalResult(t.Result)
	if err != nil {
		return Transaction{}, fmt.Errorf("commit call: %w", err)
	}
	logs, err := marshalLogs(t.Logs)
	if err != nil {
		return Transaction{}, fmt.Errorf("commit call: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
		(hash, signer, receiver, function, args, deposit, gas, gas_burnt, nonce, success, failure, result, logs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Hash,
		t.Signer,
		t.Receiver,
		t.Function,
		args,
		t.Deposit.String(),
		int64(t.Gas),
		int64(t.GasBurnt),
		t.Nonce,
		t.Success,
		t.Failure,
		result,
		logs,
	)
	if err != nil {
		return Transaction{}, fmt.Errorf("commit call: record: %w", err)
	}
	if t.Seq, err = res.LastInsertId(); err != nil {
		return Transaction{}, fmt.Errorf("commit call: record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Transaction{}, fmt.Errorf("commit call: commit: %w", err)
	}
	return t, nil
}

// ListTransactions returns every transaction in execution order. A
// non-empty receiver filters to calls on that account.
func (s *Store) ListTransactions(ctx context.Context, receiver string) ([]Transaction, error) {
	query := `
		SELECT seq, hash, signer, receiver, function, args, deposit, gas, gas_burnt, nonce, success, failure, result, logs
		FROM transactions`
	var args []any
	if receiver != "" {
		query += ` WHERE receiver = ?`
		args = append(args, receiver)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(row scanner) (Transaction, error) {
	var (
		t             Transaction
		args, deposit string
		gas, gasBurnt int64
		result        sql.NullString
		logs          string
	)
	if err := row.Scan(&t.Seq, &t.Hash, &t.Signer, &t.Receiver, &t.Function, &args, &deposit,
		&gas, &gasBurnt, &t.Nonce, &t.Success, &t.Failure, &result, &logs); err != nil {
		return Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if t.Args, err = unmarshalArgs(args); err != nil {
		return Transaction{}, err
	}
	if t.Deposit, err = units.ParseBalance(deposit); err != nil {
		return Transaction{}, fmt.Errorf("transaction %s deposit: %w", t.Hash, err)
	}
	if result.Valid {
		if t.Result, err = unmarshalValue(result.String); err != nil {
			return Transaction{}, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if t.Logs, err = unmarshalLogs(logs); err != nil {
		return Transaction{}, err
	}
	t.Gas = units.Gas(gas)
	t.GasBurnt = units.Gas(gasBurnt)
	return t, nil
}
