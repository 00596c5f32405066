// Package harness runs declarative YAML scenarios against a fresh sandbox.
//
// # Scenario Format
//
//	name: token_init
//	description: "init the token and read the owner back"
//	provision:
//	  - account: alice
//	    balance: "20 N"
//	  - contract: token
//	    artifact: token.cue
//	    balance: "10 N"
//	steps:
//	  - kind: self_call
//	    contract: token
//	    function: init
//	    args: { owner_id: "${alice}" }
//	  - kind: view
//	    contract: token
//	    function: owner
//	    label: owner
//	    expect: { result: "${alice}" }
//	  - kind: view_account
//	    account: alice
//	    expect: { balance: "20 N" }
//	assertions:
//	  - type: final_state
//	    contract: token
//	    expect: { owner_id: "${alice}" }
//
// Provision entries are created in the order written, accounts and
// contracts interleaved. Steps run as one batch: a step whose account or
// contract was never provisioned aborts the batch, which the scenario can
// demand with expect_error.
//
// ${key} inside args and expected values is replaced by the account id the
// key was provisioned under; ${root} is the root account.
//
// # Expectations
//
// Per step: success, failure (substring), result (subset match for
// objects), logs (exact), balance (view_account only).
//
// Per scenario: trace_contains, trace_order, trace_count, and final_state,
// which reads a contract's storage from the ledger.
//
// # Deterministic Testing
//
// Each run uses an in-memory ledger and names root accounts
// dev-harness-<n>.test, so traces are identical across runs and can be
// compared with golden files:
//
//	result, err := harness.RunWithGolden(t, scenario)
//
// Regenerate golden files with go test ./internal/harness -update.
package harness
