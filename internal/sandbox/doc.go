// Package sandbox is an in-process network for tests.
//
// A Sandbox implements chain.Network on top of a store.Store ledger.
// Contracts are CUE artifacts compiled by package compiler and executed by
// package contract. Every connection creates its root account as
// "dev-<uuid>.test" funded from genesis, so several scenarios can share one
// ledger without clashing.
//
// Calls are charged a flat amount of gas. A call that panics, runs out of
// gas or targets an account without code is recorded as a failed
// transaction and returned as a failed outcome; the deposit stays with the
// signer and no storage is written.
package sandbox
