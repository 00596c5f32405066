package scenario

import "github.com/roach88/chainharness/internal/units"

// Well-known participant keys.
const (
	Alice   = "alice"
	Bob     = "bob"
	Charlie = "charlie"
	Dave    = "dave"
	Edward  = "edward"
	Fred    = "fred"
)

// Participants lists the well-known keys in their conventional order.
var Participants = []string{Alice, Bob, Charlie, Dave, Edward, Fred}

// RegisterAlice registers the "alice" account.
func (b *Builder) RegisterAlice(balance units.Balance) error {
	return b.RegisterAccount(Alice, balance)
}

// RegisterBob registers the "bob" account.
func (b *Builder) RegisterBob(balance units.Balance) error {
	return b.RegisterAccount(Bob, balance)
}

// RegisterCharlie registers the "charlie" account.
func (b *Builder) RegisterCharlie(balance units.Balance) error {
	return b.RegisterAccount(Charlie, balance)
}

// RegisterDave registers the "dave" account.
func (b *Builder) RegisterDave(balance units.Balance) error {
	return b.RegisterAccount(Dave, balance)
}

// RegisterEdward registers the "edward" account.
func (b *Builder) RegisterEdward(balance units.Balance) error {
	return b.RegisterAccount(Edward, balance)
}

// RegisterFred registers the "fred" account.
func (b *Builder) RegisterFred(balance units.Balance) error {
	return b.RegisterAccount(Fred, balance)
}
