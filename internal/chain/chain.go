// Package chain is the boundary between the scenario engine and the network
// it drives. The engine only ever talks to a Network and the Conn it hands
// out; sandbox.Sandbox is the in-process implementation.
package chain

import (
	"context"

	"github.com/roach88/chainharness/internal/units"
)

// AccountID is a fully qualified on-chain account name, e.g.
// "alice.dev-0190c1f2.test".
type AccountID string

func (id AccountID) String() string { return string(id) }

// Account is a live handle to an account that exists on the network.
type Account struct {
	ID AccountID
}

// Contract is a live handle to an account with deployed code.
type Contract struct {
	ID       AccountID
	CodeHash string
}

// AsAccount returns the account that backs the contract.
func (c Contract) AsAccount() Account {
	return Account{ID: c.ID}
}

// Network opens connections to a sandboxed or remote network.
type Network interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a live connection. Every method may block on network I/O.
type Conn interface {
	// CreateRootAccount creates a funded top-level account from which test
	// subaccounts are created.
	CreateRootAccount(ctx context.Context) (Account, error)

	// CreateSubaccount creates "<name>.<parent>" funded with balance taken
	// from the parent.
	CreateSubaccount(ctx context.Context, parent Account, name string, balance units.Balance) (Account, error)

	// Deploy installs code on an existing account.
	Deploy(ctx context.Context, account Account, code []byte) (Contract, error)

	// Call submits a state-changing function call. An on-chain failure is a
	// CallOutcome with Status.Success == false, not an error; errors are
	// reserved for the request not being executed at all.
	Call(ctx context.Context, req CallRequest) (*CallOutcome, error)

	// View runs a read-only function.
	View(ctx context.Context, req ViewRequest) (*ViewOutcome, error)

	// ViewAccount reads the current state of an account.
	ViewAccount(ctx context.Context, id AccountID) (*AccountSnapshot, error)

	// Close releases the connection.
	Close() error
}

// CallRequest describes a state-changing call. Args is the JSON encoding of
// the argument object.
type CallRequest struct {
	Signer   AccountID
	Receiver AccountID
	Function string
	Args     []byte
	Deposit  units.Balance
	Gas      units.Gas
}

// ViewRequest describes a read-only call.
type ViewRequest struct {
	Contract AccountID
	Function string
	Args     []byte
	Gas      units.Gas
}
