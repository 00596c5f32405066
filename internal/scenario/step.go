package scenario

import (
	"context"
	"fmt"

	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

// Kind is the operation a step performs.
type Kind int

const (
	// KindCall is a state-changing call from an account to a contract.
	KindCall Kind = iota + 1
	// KindView is a read-only call on a contract.
	KindView
	// KindSelfCall is a contract calling one of its own functions.
	KindSelfCall
	// KindViewAccount inspects an account's balance and code.
	KindViewAccount
)

var kindNames = map[Kind]string{
	KindCall:        "call",
	KindView:        "view",
	KindSelfCall:    "self_call",
	KindViewAccount: "view_account",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown step kind %q", s)
}

func (k Kind) needsAccount() bool {
	return k == KindCall || k == KindViewAccount
}

func (k Kind) needsContract() bool {
	return k == KindCall || k == KindView || k == KindSelfCall
}

func (k Kind) attachesDeposit() bool {
	return k == KindCall || k == KindSelfCall
}

// Args builds an argument object from pairs. Later pairs overwrite earlier
// ones with the same name.
func Args(pairs ...ir.Pair) ir.Object {
	return ir.NewObject(pairs...)
}

// Step is one configured pending operation. It owns the State it was built
// from until Chain or Execute is called.
type Step struct {
	kind     Kind
	account  string
	contract string
	function string
	args     ir.Object
	deposit  units.Balance
	gas      units.Gas
	label    string
	labeled  bool

	state *State
}

func (s *Step) mustLive(op string) {
	if s.state == nil {
		panic(fmt.Errorf("scenario: Step.%s: %w", op, ErrStepConsumed))
	}
}

// WithDeposit attaches balance to the step. Kinds that cannot carry a
// deposit ignore it at dispatch.
func (s *Step) WithDeposit(deposit units.Balance) *Step {
	s.mustLive("WithDeposit")
	s.deposit = deposit
	return s
}

// WithGas sets the compute budget. Zero means the network default.
func (s *Step) WithGas(gas units.Gas) *Step {
	s.mustLive("WithGas")
	s.gas = gas
	return s
}

// WithLabel stores the step's outcome under label instead of its position.
func (s *Step) WithLabel(label string) *Step {
	s.mustLive("WithLabel")
	s.label = label
	s.labeled = true
	return s
}

// Chain enqueues the step and hands the State back to the caller.
func (s *Step) Chain() *State {
	s.mustLive("Chain")
	st := s.state
	st.Enqueue(s)
	return st
}

// Execute chains the step and runs the whole pending queue.
func (s *Step) Execute(ctx context.Context) (*Ledger, error) {
	return s.Chain().Execute(ctx)
}

// Kind returns the step's operation kind.
func (s *Step) Kind() Kind { return s.kind }

// AccountKey returns the account key, empty when unset.
func (s *Step) AccountKey() string { return s.account }

// ContractKey returns the contract key, empty when unset.
func (s *Step) ContractKey() string { return s.contract }

// Function returns the function name.
func (s *Step) Function() string { return s.function }

// ArgsObject returns a copy of the step arguments.
func (s *Step) ArgsObject() ir.Object {
	return s.args.Clone()
}

// Deposit returns the attached balance.
func (s *Step) Deposit() units.Balance { return s.deposit }

// Gas returns the compute budget; zero means the network default.
func (s *Step) Gas() units.Gas { return s.gas }

// Label returns the explicit label, if any.
func (s *Step) Label() (string, bool) { return s.label, s.labeled }
