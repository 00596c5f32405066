// Package scenario provisions a test network and runs ordered scenarios of
// contract calls, views and account inspections against it.
//
// A Builder collects the accounts and contracts a test needs and provisions
// them in declaration order, yielding a State. Steps are built from the
// State, configured, and either chained back into it or executed:
//
//	b := scenario.NewBuilder(network)
//	_ = b.RegisterAlice(units.Near(20))
//	_ = b.RegisterContract("token", "testdata/token.cue", units.Near(10))
//	st, err := b.Provision(ctx)
//	if err != nil {
//	    return err
//	}
//
//	ledger, err := st.
//	    SelfCall("token", "init", scenario.Args(ir.O("owner_id", ir.String("alice")))).
//	    WithGas(units.Tgas(10)).
//	    Chain().
//	    View("token", "owner", nil).
//	    WithLabel("owner").
//	    Execute(ctx)
//
// # Ownership
//
// A State has exactly one owner at a time. Building a Step hands the State
// to the Step; Chain hands it back; Execute hands it to the resulting Ledger
// (or to the StepError on failure), from which TakeState returns it. Using a
// State, Step or Ledger after it has given ownership away is a programming
// error and panics.
//
// # Execution
//
// Steps run strictly one after another, in the order they were chained.
// Account and contract keys are resolved against the State only when a step
// is dispatched, so steps can be composed before every key is known. The
// first failing step aborts the batch; nothing is retried.
package scenario
