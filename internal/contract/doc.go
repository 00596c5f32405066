// Package contract is the runtime for sandbox contracts.
//
// A Program is compiled from a CUE artifact by package compiler. It declares
// initial storage and a set of functions; each function checks its
// arguments, optionally requires a minimum deposit or the owner as caller,
// then writes storage, emits log lines and returns a value. Every effect is
// described by templates that read the call environment:
//
//	args.<name>     an argument of the call
//	storage.<key>   the current value of a storage key
//	predecessor     the calling account
//	deposit         the attached deposit in yocto, as a decimal string
//	self            the contract account
//
// Any other string is a literal. Log lines interpolate templates in braces:
// "minted {args.amount} for {predecessor}".
//
// Execution is pure: Call and View never mutate the storage they are given;
// they return the writes for the caller to commit.
package contract
