package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ledgerVersion is stamped into PRAGMA user_version of every ledger. Bump it
// whenever schema.sql changes shape; older files are then refused instead of
// being read with the wrong columns.
const ledgerVersion = 1

// Store is the sandbox ledger.
type Store struct {
	db *sql.DB
}

// Open opens the ledger at path, creating the file and schema if needed.
// ":memory:" opens a private ledger that lives as long as the Store.
//
// File ledgers run in WAL mode so `chainharness trace` can read a ledger
// while a run is still writing it. In-memory ledgers keep SQLite's memory
// journal; WAL does not apply to them.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("open ledger: empty path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	// An in-memory database exists per connection, so the pool must never
	// open a second one or drop the first.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	if err := applyPragmas(db, journalMode(path)); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure ledger %s: %w", path, err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection. An in-memory ledger is gone after.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func inMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// journalMode is the journal SQLite must report back for path.
func journalMode(path string) string {
	if inMemory(path) {
		return "memory"
	}
	return "wal"
}

// applyPragmas configures the connection. SQLite answers an unsupported
// journal_mode with the mode it kept, so the answer is checked.
func applyPragmas(db *sql.DB, journal string) error {
	var got string
	if err := db.QueryRow("PRAGMA journal_mode = " + journal).Scan(&got); err != nil {
		return fmt.Errorf("set journal_mode: %w", err)
	}
	if !strings.EqualFold(got, journal) {
		return fmt.Errorf("journal_mode = %q, want %q", got, journal)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the tables of a new ledger and checks the version of
// an existing one.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	switch version {
	case 0:
		// Fresh file, or one that holds no ledger yet.
	case ledgerVersion:
		return nil
	default:
		return fmt.Errorf("%w: file has version %d, this build reads %d", ErrLedgerVersion, version, ledgerVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", ledgerVersion)); err != nil {
		return fmt.Errorf("stamp user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
