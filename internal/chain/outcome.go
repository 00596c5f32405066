package chain

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/chainharness/internal/units"
)

// Status is the final status of an executed transaction.
type Status struct {
	Success bool
	// Failure is the on-chain error message when Success is false.
	Failure string
}

// Receipt is one execution unit of a transaction.
type Receipt struct {
	Executor AccountID
	Logs     []string
	GasBurnt units.Gas
	Status   Status
}

// CallOutcome is the result of a state-changing call.
type CallOutcome struct {
	TxHash   string
	Status   Status
	Return   []byte // JSON; nil when the function returned nothing
	Receipts []Receipt
	GasBurnt units.Gas
}

// Logs flattens the logs of every receipt in execution order.
func (o *CallOutcome) Logs() []string {
	var logs []string
	for _, r := range o.Receipts {
		logs = append(logs, r.Logs...)
	}
	return logs
}

// JSON decodes the return value into v.
func (o *CallOutcome) JSON(v any) error {
	return decodeReturn(o.Return, v)
}

// ViewOutcome is the result of a read-only call.
type ViewOutcome struct {
	Result []byte // JSON
	Logs   []string
}

// JSON decodes the result into v.
func (o *ViewOutcome) JSON(v any) error {
	return decodeReturn(o.Result, v)
}

// AccountSnapshot is the observable state of an account.
type AccountSnapshot struct {
	ID           AccountID
	Balance      units.Balance
	Locked       units.Balance
	CodeHash     string // empty when no code is deployed
	StorageUsage uint64
}

func decodeReturn(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("no return value")
	}
	return json.Unmarshal(data, v)
}
