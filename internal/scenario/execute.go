package scenario

import (
	"context"
	"fmt"

	"github.com/roach88/chainharness/internal/chain"
	"github.com/roach88/chainharness/internal/ir"
)

// Execute drains the pending queue and runs the steps one at a time, in the
// order they were chained. Each step sees the effects of every step before
// it.
//
// On success the State is handed to the returned Ledger. The first failing
// step aborts the batch with a *StepError that owns the State instead;
// outcomes of earlier steps are discarded and later steps never run.
func (st *State) Execute(ctx context.Context) (*Ledger, error) {
	st.hold("Execute")
	steps := st.drain()
	ledger := newLedger(st)

	st.logger.Debug("executing batch", "steps", len(steps))
	for i, step := range steps {
		key := IndexKey(i)
		if step.labeled {
			key = LabelKey(step.label)
		}

		outcome, err := st.dispatch(ctx, step)
		if err != nil {
			st.logger.Warn("step failed",
				"position", i,
				"key", key.String(),
				"kind", step.kind.String(),
				"function", step.function,
				"error", err,
			)
			return nil, &StepError{
				Key:      key,
				Position: i,
				Kind:     step.kind,
				Function: step.function,
				Err:      err,
				state:    st,
			}
		}

		st.logger.Info("step executed",
			"position", i,
			"key", key.String(),
			"kind", step.kind.String(),
			"function", step.function,
		)
		ledger.put(key, outcome)
	}

	return ledger, nil
}

type targets struct {
	account  chain.Account
	contract chain.Contract
}

// resolve looks up every target the step's kind requires. Keys the kind
// does not use are ignored, even when they are set.
func (st *State) resolve(step *Step) (targets, error) {
	var t targets
	var missing []Target

	if step.kind.needsAccount() {
		acc, ok := st.accounts[step.account]
		if !ok {
			missing = append(missing, Target{Role: "account", Key: step.account})
		}
		t.account = acc
	}
	if step.kind.needsContract() {
		c, ok := st.contracts[step.contract]
		if !ok {
			missing = append(missing, Target{Role: "contract", Key: step.contract})
		}
		t.contract = c
	}

	if len(missing) > 0 {
		return targets{}, &TargetError{Kind: step.kind, Missing: missing}
	}
	return t, nil
}

func (st *State) dispatch(ctx context.Context, step *Step) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := st.resolve(step)
	if err != nil {
		return nil, err
	}

	switch step.kind {
	case KindCall, KindSelfCall:
		args, err := ir.MarshalCanonical(step.args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		signer := t.account.ID
		if step.kind == KindSelfCall {
			signer = t.contract.ID
		}
		out, err := st.conn.Call(ctx, chain.CallRequest{
			Signer:   signer,
			Receiver: t.contract.ID,
			Function: step.function,
			Args:     args,
			Deposit:  step.deposit,
			Gas:      step.gas,
		})
		if err != nil {
			return nil, err
		}
		return callOutcome(out), nil

	case KindView:
		args, err := ir.MarshalCanonical(step.args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		out, err := st.conn.View(ctx, chain.ViewRequest{
			Contract: t.contract.ID,
			Function: step.function,
			Args:     args,
			Gas:      step.gas,
		})
		if err != nil {
			return nil, err
		}
		return viewOutcome(out), nil

	case KindViewAccount:
		snap, err := st.conn.ViewAccount(ctx, t.account.ID)
		if err != nil {
			return nil, err
		}
		return accountOutcome(snap), nil
	}

	return nil, fmt.Errorf("unknown step kind %s", step.kind)
}
