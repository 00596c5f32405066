package scenario

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/ir"
)

// State is the provisioned network: the live connection, the root account,
// the accounts and contracts by key, and the queue of pending steps.
//
// A State has a single owner; see the package documentation.
type State struct {
	conn   chain.Conn
	root   chain.Account
	logger *slog.Logger

	accounts     map[string]chain.Account
	contracts    map[string]chain.Contract
	accountKeys  []string
	contractKeys []string

	pending []*Step

	// held is set while a Step, Ledger or StepError owns the state.
	held bool
}

func newState(conn chain.Conn, root chain.Account, logger *slog.Logger) *State {
	return &State{
		conn:      conn,
		root:      root,
		logger:    logger,
		accounts:  make(map[string]chain.Account),
		contracts: make(map[string]chain.Contract),
	}
}

func (st *State) addAccount(key string, acc chain.Account) {
	st.accounts[key] = acc
	st.accountKeys = append(st.accountKeys, key)
}

func (st *State) addContract(key string, c chain.Contract) {
	st.contracts[key] = c
	st.contractKeys = append(st.contractKeys, key)
}

// mustOwn panics when the state has been handed to someone else.
func (st *State) mustOwn(op string) {
	if st.held {
		panic(fmt.Errorf("scenario: State.%s: %w", op, ErrStateConsumed))
	}
}

func (st *State) hold(op string) {
	st.mustOwn(op)
	st.held = true
}

func (st *State) release() {
	st.held = false
}

// Conn returns the live network connection.
func (st *State) Conn() chain.Conn {
	st.mustOwn("Conn")
	return st.conn
}

// Root returns the funded root account that parents every test account.
func (st *State) Root() chain.Account {
	st.mustOwn("Root")
	return st.root
}

// Account returns the account registered under key.
func (st *State) Account(key string) (chain.Account, error) {
	st.mustOwn("Account")
	acc, ok := st.accounts[key]
	if !ok {
		return chain.Account{}, &NotFoundError{What: "account", Key: key}
	}
	return acc, nil
}

// Contract returns the contract registered under key.
func (st *State) Contract(key string) (chain.Contract, error) {
	st.mustOwn("Contract")
	c, ok := st.contracts[key]
	if !ok {
		return chain.Contract{}, &NotFoundError{What: "contract", Key: key}
	}
	return c, nil
}

// AccountKey returns the canonical key of a registered account. Unlike
// Account it does not produce an error, so a step builder can decide for
// itself whether a miss is fatal.
func (st *State) AccountKey(key string) (string, bool) {
	st.mustOwn("AccountKey")
	i := slices.Index(st.accountKeys, key)
	if i < 0 {
		return "", false
	}
	return st.accountKeys[i], true
}

// ContractKey is AccountKey for contracts.
func (st *State) ContractKey(key string) (string, bool) {
	st.mustOwn("ContractKey")
	i := slices.Index(st.contractKeys, key)
	if i < 0 {
		return "", false
	}
	return st.contractKeys[i], true
}

// AccountKeys returns the account keys in provisioning order.
func (st *State) AccountKeys() []string {
	st.mustOwn("AccountKeys")
	return slices.Clone(st.accountKeys)
}

// ContractKeys returns the contract keys in provisioning order.
func (st *State) ContractKeys() []string {
	st.mustOwn("ContractKeys")
	return slices.Clone(st.contractKeys)
}

// Alice returns the "alice" account.
func (st *State) Alice() (chain.Account, error) { return st.Account(Alice) }

// Bob returns the "bob" account.
func (st *State) Bob() (chain.Account, error) { return st.Account(Bob) }

// Charlie returns the "charlie" account.
func (st *State) Charlie() (chain.Account, error) { return st.Account(Charlie) }

// Dave returns the "dave" account.
func (st *State) Dave() (chain.Account, error) { return st.Account(Dave) }

// Edward returns the "edward" account.
func (st *State) Edward() (chain.Account, error) { return st.Account(Edward) }

// Fred returns the "fred" account.
func (st *State) Fred() (chain.Account, error) { return st.Account(Fred) }

// Enqueue appends a configured step to the pending queue. The step must
// have been built from this state and must not have been chained yet;
// Step.Chain is the usual way in.
func (st *State) Enqueue(step *Step) {
	if step.state != st {
		panic(fmt.Errorf("scenario: State.Enqueue: step was not built from this state: %w", ErrStepConsumed))
	}
	st.release()
	step.state = nil
	st.pending = append(st.pending, step)
}

// Drain removes and returns the pending queue in FIFO order.
func (st *State) Drain() []*Step {
	st.mustOwn("Drain")
	return st.drain()
}

func (st *State) drain() []*Step {
	steps := st.pending
	st.pending = nil
	return steps
}

// Pending returns the number of queued steps.
func (st *State) Pending() int {
	st.mustOwn("Pending")
	return len(st.pending)
}

// Close closes the network connection.
func (st *State) Close() error {
	st.mustOwn("Close")
	return st.conn.Close()
}

// NewStep builds a step of any kind. Keys that the kind does not use may be
// empty. No lookup happens here; targets are resolved at dispatch.
//
// The step takes ownership of the state until it is chained or executed.
func (st *State) NewStep(kind Kind, account, contract, function string, args ir.Object) *Step {
	st.hold("NewStep")
	if args == nil {
		args = ir.Object{}
	}
	return &Step{
		kind:     kind,
		account:  account,
		contract: contract,
		function: function,
		args:     args,
		state:    st,
	}
}

// Call builds a step in which account calls function on contract.
func (st *State) Call(account, contract, function string, args ir.Object) *Step {
	return st.NewStep(KindCall, account, contract, function, args)
}

// View builds a read-only call of function on contract.
func (st *State) View(contract, function string, args ir.Object) *Step {
	return st.NewStep(KindView, "", contract, function, args)
}

// SelfCall builds a step in which contract calls its own function.
func (st *State) SelfCall(contract, function string, args ir.Object) *Step {
	return st.NewStep(KindSelfCall, "", contract, function, args)
}

// ViewAccount builds an inspection of the account registered under key.
func (st *State) ViewAccount(account string) *Step {
	return st.NewStep(KindViewAccount, account, "", "", nil)
}
