package scenario

import (
	"fmt"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/ir"
	"github.com/roach88/chainharness/internal/units"
)

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeCall OutcomeKind = iota + 1
	OutcomeView
	OutcomeAccount
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCall:
		return "call"
	case OutcomeView:
		return "view"
	case OutcomeAccount:
		return "account"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the normalized result of one step. Exactly one of the
// underlying results is set; accessors that do not apply to it return a
// *KindMismatchError.
type Outcome struct {
	kind    OutcomeKind
	call    *chain.CallOutcome
	view    *chain.ViewOutcome
	account *chain.AccountSnapshot
}

func callOutcome(o *chain.CallOutcome) *Outcome {
	return &Outcome{kind: OutcomeCall, call: o}
}

func viewOutcome(o *chain.ViewOutcome) *Outcome {
	return &Outcome{kind: OutcomeView, view: o}
}

func accountOutcome(s *chain.AccountSnapshot) *Outcome {
	return &Outcome{kind: OutcomeAccount, account: s}
}

func (o *Outcome) mismatch(method string) error {
	return &KindMismatchError{Method: method, Got: o.kind}
}

// Kind returns the outcome variant.
func (o *Outcome) Kind() OutcomeKind {
	return o.kind
}

// Raw returns the JSON return value of a call or the result of a view.
func (o *Outcome) Raw() ([]byte, error) {
	switch o.kind {
	case OutcomeCall:
		return o.call.Return, nil
	case OutcomeView:
		return o.view.Result, nil
	}
	return nil, o.mismatch("Raw")
}

// JSON decodes the return value of a call or view into v.
func (o *Outcome) JSON(v any) error {
	switch o.kind {
	case OutcomeCall:
		return o.call.JSON(v)
	case OutcomeView:
		return o.view.JSON(v)
	}
	return o.mismatch("JSON")
}

// Value returns the return value as an ir.Value. A call that returned
// nothing yields ir.Null.
func (o *Outcome) Value() (ir.Value, error) {
	raw, err := o.Raw()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return ir.Null{}, nil
	}
	return ir.Unmarshal(raw)
}

// Logs returns the log lines of a call (across every receipt) or a view.
func (o *Outcome) Logs() ([]string, error) {
	switch o.kind {
	case OutcomeCall:
		return o.call.Logs(), nil
	case OutcomeView:
		return o.view.Logs, nil
	}
	return nil, o.mismatch("Logs")
}

// IsSuccess reports whether a call executed without failure.
func (o *Outcome) IsSuccess() (bool, error) {
	if o.kind != OutcomeCall {
		return false, o.mismatch("IsSuccess")
	}
	return o.call.Status.Success, nil
}

// Failure returns the failure message of a failed call, empty on success.
func (o *Outcome) Failure() (string, error) {
	if o.kind != OutcomeCall {
		return "", o.mismatch("Failure")
	}
	return o.call.Status.Failure, nil
}

// Receipts returns the receipts of a call.
func (o *Outcome) Receipts() ([]chain.Receipt, error) {
	if o.kind != OutcomeCall {
		return nil, o.mismatch("Receipts")
	}
	return o.call.Receipts, nil
}

// GasBurnt returns the total gas burnt by a call.
func (o *Outcome) GasBurnt() (units.Gas, error) {
	if o.kind != OutcomeCall {
		return 0, o.mismatch("GasBurnt")
	}
	return o.call.GasBurnt, nil
}

// TxHash returns the transaction hash of a call.
func (o *Outcome) TxHash() (string, error) {
	if o.kind != OutcomeCall {
		return "", o.mismatch("TxHash")
	}
	return o.call.TxHash, nil
}

// Balance returns the balance of an inspected account.
func (o *Outcome) Balance() (units.Balance, error) {
	if o.kind != OutcomeAccount {
		return units.Balance{}, o.mismatch("Balance")
	}
	return o.account.Balance, nil
}

// Snapshot returns the full account inspection.
func (o *Outcome) Snapshot() (*chain.AccountSnapshot, error) {
	if o.kind != OutcomeAccount {
		return nil, o.mismatch("Snapshot")
	}
	return o.account, nil
}

// Call returns the underlying call result.
func (o *Outcome) Call() (*chain.CallOutcome, error) {
	if o.kind != OutcomeCall {
		return nil, o.mismatch("Call")
	}
	return o.call, nil
}

// View returns the underlying view result.
func (o *Outcome) View() (*chain.ViewOutcome, error) {
	if o.kind != OutcomeView {
		return nil, o.mismatch("View")
	}
	return o.view, nil
}
