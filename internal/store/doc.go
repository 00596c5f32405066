// Package store provides SQLite-backed persistence for the sandbox network.
//
// The store keeps:
//   - Accounts: id, parent, balance, deployed code hash and nonce
//   - Code: deployed contract artifacts, content addressed
//   - Storage: per-contract key/value state as canonical JSON
//   - Transactions: every executed call with its outcome
//
// Balances are stored as decimal yocto strings; they exceed SQLite's 64-bit
// integers. Every multi-row change (transfers, call commits) runs in one
// SQL transaction, so a failed call leaves no partial state behind.
//
// # Deterministic Ordering
//
// Listings are ordered by seq, the insertion order, never by wall time.
//
// # Ledger Files
//
// A ledger file runs in WAL mode so trace can read it during a run, and
// carries its schema version in PRAGMA user_version. Open refuses a file
// stamped with another version (ErrLedgerVersion). ":memory:" ledgers keep
// the memory journal and disappear on Close.
package store
