package sandbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// accountIDPattern is the NEAR account id grammar: dot separated parts of
// lowercase alphanumerics joined by single '-' or '_'.
var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

// ValidateAccountID checks a fully qualified account id.
func ValidateAccountID(id string) error {
	if len(id) < minAccountIDLen || len(id) > maxAccountIDLen {
		return fmt.Errorf("invalid account id %q: length must be between %d and %d", id, minAccountIDLen, maxAccountIDLen)
	}
	if !accountIDPattern.MatchString(id) {
		return fmt.Errorf("invalid account id %q", id)
	}
	return nil
}

func validateSubaccountName(name string) error {
	if name == "" || strings.Contains(name, ".") {
		return fmt.Errorf("invalid subaccount name %q: must be a single non-empty part", name)
	}
	return nil
}

// NameGenerator produces the unique part of root account ids.
type NameGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 names, so root accounts
// created later sort later.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

func rootAccountID(names NameGenerator) string {
	return "dev-" + names.Generate() + ".test"
}
