package store

import (
	"errors"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

var (
	// ErrAccountExists is returned when creating an account id twice.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned for an unknown account id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCodeNotFound is returned for an unknown code hash.
	ErrCodeNotFound = errors.New("code not found")

	// ErrLedgerVersion is returned when opening a ledger file written with
	// a different schema.
	ErrLedgerVersion = errors.New("unsupported ledger version")
)

// Account is one row of the accounts table.
type Account struct {
	Seq      int64
	ID       string
	Parent   string
	Balance  units.Balance
	CodeHash string
	Nonce    int64
}

// Transaction is one executed call.
type Transaction struct {
	Seq      int64
	Hash     string
	Signer   string
	Receiver string
	Function string
	Args     ir.Object
	Deposit  units.Balance
	Gas      units.Gas
	GasBurnt units.Gas
	Nonce    int64
	Success  bool
	Failure  string
	Result   ir.Value // nil when the call returned nothing
	Logs     []string
}

// CallCommit is everything one executed call changes, applied atomically
// by Store.CommitCall.
type CallCommit struct {
	Tx Transaction
	// GasCost is debited from the signer whether or not the call succeeded.
	GasCost units.Balance
	// Writes are applied to the receiver's storage only on success.
	Writes ir.Object
}
