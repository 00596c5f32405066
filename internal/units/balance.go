package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// NearDecimals is the number of decimal places between N and yocto.
const NearDecimals = 24

var (
	// ErrOverflow is returned when an amount does not fit in 256 bits.
	ErrOverflow = errors.New("balance overflow")

	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("balance underflow")
)

var oneNear = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(NearDecimals))

// Balance is an amount in yocto. The zero value is zero yocto.
//
// Balance has value semantics: arithmetic returns a new Balance and never
// mutates the receiver.
type Balance struct {
	v uint256.Int
}

// Yocto returns a balance of n base units.
func Yocto(n uint64) Balance {
	var b Balance
	b.v.SetUint64(n)
	return b
}

// Near returns a balance of n whole N. Any uint64 fits without overflow.
func Near(n uint64) Balance {
	var b Balance
	b.v.Mul(uint256.NewInt(n), oneNear)
	return b
}

// FromInt copies a uint256 value into a Balance.
func FromInt(v *uint256.Int) Balance {
	var b Balance
	if v != nil {
		b.v.Set(v)
	}
	return b
}

// Int returns a copy of the underlying 256-bit integer.
func (b Balance) Int() *uint256.Int {
	return b.v.Clone()
}

// IsZero reports whether the balance is zero.
func (b Balance) IsZero() bool {
	return b.v.IsZero()
}

// Cmp compares two balances and returns -1, 0 or +1.
func (b Balance) Cmp(o Balance) int {
	return b.v.Cmp(&o.v)
}

// Add returns b+o or ErrOverflow.
func (b Balance) Add(o Balance) (Balance, error) {
	var out Balance
	if _, overflow := out.v.AddOverflow(&b.v, &o.v); overflow {
		return Balance{}, ErrOverflow
	}
	return out, nil
}

// Sub returns b-o or ErrUnderflow.
func (b Balance) Sub(o Balance) (Balance, error) {
	var out Balance
	if _, underflow := out.v.SubOverflow(&b.v, &o.v); underflow {
		return Balance{}, ErrUnderflow
	}
	return out, nil
}

// String returns the amount in yocto as a decimal string.
func (b Balance) String() string {
	return b.v.Dec()
}

// HumanString formats the balance in N, trimming trailing zeros
// ("10 N", "0.5 N", "0 N").
func (b Balance) HumanString() string {
	var whole, frac uint256.Int
	whole.DivMod(&b.v, oneNear, &frac)
	if frac.IsZero() {
		return whole.Dec() + " N"
	}
	fs := frac.Dec()
	fs = strings.Repeat("0", NearDecimals-len(fs)) + fs
	fs = strings.TrimRight(fs, "0")
	return whole.Dec() + "." + fs + " N"
}

// ParseBalance parses a human amount.
//
// Accepted forms:
//
//	"1000"      1000 yocto
//	"1000 yN"   1000 yocto ("yocto" also accepted)
//	"10 N"      10 * 10^24 yocto ("NEAR" and "near" also accepted)
//	"0.25 N"    fractional N, up to 24 decimals
func ParseBalance(s string) (Balance, error) {
	amount, unit := splitAmount(s)
	if amount == "" {
		return Balance{}, fmt.Errorf("parse balance %q: missing amount", s)
	}

	switch unit {
	case "", "yN", "yocto":
		return parseYocto(s, amount)
	case "N", "NEAR", "near", "Near":
		return parseNear(s, amount)
	default:
		return Balance{}, fmt.Errorf("parse balance %q: unknown unit %q", s, unit)
	}
}

// MustParseBalance is like ParseBalance but panics on error.
// Use only in tests or with constant input.
func MustParseBalance(s string) Balance {
	b, err := ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

func parseYocto(s, amount string) (Balance, error) {
	if !isDigits(amount) {
		return Balance{}, fmt.Errorf("parse balance %q: yocto amount must be an integer", s)
	}
	v, err := uint256.FromDecimal(amount)
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance %q: %w", s, ErrOverflow)
	}
	return FromInt(v), nil
}

func parseNear(s, amount string) (Balance, error) {
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return Balance{}, fmt.Errorf("parse balance %q: malformed number", s)
	}
	if len(frac) > NearDecimals {
		return Balance{}, fmt.Errorf("parse balance %q: more than %d decimals", s, NearDecimals)
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", NearDecimals-len(frac)), "0")
	if digits == "" {
		return Balance{}, nil
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return Balance{}, fmt.Errorf("parse balance %q: %w", s, ErrOverflow)
	}
	return FromInt(v), nil
}

// splitAmount separates "10 N" / "10N" into ("10", "N").
func splitAmount(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
